// Package whisper wraps the whisper command line tool for speech to text.
// It runs the model over extracted WAV audio, parses the JSON output into a
// transcript, and classifies failures into the services error taxonomy.
package whisper
