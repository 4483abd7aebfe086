package types

import "time"

// Transcript is the recognizer output as persisted on disk.
type Transcript struct {
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// Fragment is one raw timed piece of recognizer output, in seconds.
type Fragment struct {
	Start float64
	End   float64
	Text  string
}

type TimedSegment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type SentenceSpan struct {
	Start      time.Duration
	End        time.Duration
	SourceText string
}

// ClipJob is a padded sentence range scheduled for cutting. Ordinal is
// assigned by the scheduler and never changes afterwards.
type ClipJob struct {
	Ordinal        int
	Start          time.Duration
	End            time.Duration
	SourceText     string
	TranslatedText string
}

func (j ClipJob) Duration() time.Duration { return j.End - j.Start }

// Card is one emitted flashcard. Ordinal is the deck position.
type Card struct {
	Ordinal        int
	ClipFilename   string
	SourceText     string
	TranslatedText string

	Start time.Duration
	End   time.Duration
}
