// ABOUTME: Microphone capture package producing native-rate float frames
// ABOUTME: Provides Source backends and the Capture lifecycle wrapper
// Package capture pulls mono audio frames from an input device.
//
// A Source is the hardware (or synthetic) backend; Capture owns its
// lifecycle. Start fails with a *DeviceError whose Kind tells the caller
// what guidance to show. Stop is idempotent and may be called before Start
// has finished.
//
// Example:
//
//	c := capture.New(capture.NewMalgo(), capture.DefaultSourceConfig(), chunker.Append)
//	if err := c.Start(ctx); err != nil {
//		var derr *capture.DeviceError
//		if errors.As(err, &derr) {
//			fmt.Println(derr.UserMessage())
//		}
//	}
//	defer c.Stop()
package capture
