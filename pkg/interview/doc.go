// ABOUTME: Package interview ties capture, chunking, transport and history together
// ABOUTME: One Session per interview mirrors the server document and records audio
// Package interview runs a live interview session.
//
// A Session owns the microphone capture, the voice-activity chunker that
// turns captured audio into utterance-sized chunks, the reconnecting
// transport to the session server, the reduced snapshot of the shared
// document and the undo history of the article text.
//
// Example:
//
//	s, err := interview.NewSession(interview.Config{
//		ServerURL: "ws://localhost:8000",
//		SessionID: id,
//		Source:    capture.NewMalgo(),
//		OnSnapshot: func(snap protocol.Snapshot) {
//			fmt.Println(len(snap.Transcript), "utterances")
//		},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer s.Close()
//
//	s.Connect(ctx)
//	if err := s.StartRecording(ctx); err != nil {
//		log.Fatal(err)
//	}
package interview
