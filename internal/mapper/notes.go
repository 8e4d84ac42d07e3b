package mapper

import "fmt"

var noteLabels = [12]string{
	"C", "C#/Db", "D", "D#/Eb", "E", "F", "F#/Gb", "G", "G#/Ab", "A", "A#/Bb", "B",
}

// Octave returns the octave of a note on the 12 note scale, starting at 0.
func Octave(note uint8) int {
	return int(note) / 12
}

// NoteName labels a note with its pitch class and octave, e.g. "C#/Db 5".
func NoteName(note uint8) string {
	return fmt.Sprintf("%s %d", noteLabels[note%12], Octave(note))
}
