// Package seg provides semantic segmentation inference with pre-trained
// ONNX models, extracting per-class boolean masks and rendering overlays.
//
// # Quick Start
//
//	sg, err := seg.New("fcn_resnet50.onnx", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sg.Close()
//
//	res, err := sg.SegmentFile(ctx, "dog.jpg")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dog, err := res.Mask("dog")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("dog covers %d pixels\n", dog.Count())
//
// # Thread Safety
//
// Segmenter is safe for concurrent use. It manages an internal pool of ONNX
// sessions, configurable via WithPoolSize.
//
// # Model Files
//
// Any ONNX export of a torchvision-style segmentation model works: float32
// NCHW input named "input", float32 NCHW class scores named "out". With an
// empty classes path the 21-class PASCAL VOC map is assumed; otherwise pass
// a JSON metadata file with a "classes" array matching the model's class
// axis.
package seg
