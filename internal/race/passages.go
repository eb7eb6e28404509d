package race

import (
	"math/rand/v2"
	"strings"
)

// PassageSource supplies the shared text for a new room.
type PassageSource interface {
	Pick() string
}

// DefaultPassages is the built-in sample corpus.
var DefaultPassages = []string{
	"The quick brown fox jumps over the lazy dog. This pangram contains every letter of the English alphabet at least once.",
	"Programming is the process of creating a set of instructions that tell a computer how to perform a task. Programming can be done using a variety of computer programming languages.",
	"The Internet is a global system of interconnected computer networks that use the standard Internet protocol suite to link devices worldwide.",
	"Artificial intelligence is intelligence demonstrated by machines, as opposed to the natural intelligence displayed by humans or animals.",
	"Typing speed is typically measured in words per minute (WPM). The average typing speed is around 40 WPM, while professional typists can reach speeds of 75-80 WPM.",
	"The keyboard is the primary text input device for computers. The QWERTY layout is the most common keyboard layout, named after the first six letters in the top row.",
	"Touch typing is a style of typing where you always use the same finger to press each specific key, without looking at the keyboard.",
	"Practice makes perfect. The more you type, the faster and more accurate you'll become. Regular practice is key to improving your typing skills.",
	"The first typewriter was invented in the 1860s, and the QWERTY keyboard layout was designed to prevent jamming of the mechanical keys.",
	"Ergonomic keyboards are designed to minimize muscle strain and reduce the risk of carpal tunnel syndrome and other repetitive strain injuries.",
}

// Corpus picks uniformly from a fixed list of passages.
type Corpus struct {
	texts []string
}

// NewCorpus keeps the non-blank entries of texts. An empty result falls back
// to DefaultPassages.
func NewCorpus(texts []string) *Corpus {
	kept := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		kept = append(kept, DefaultPassages...)
	}
	return &Corpus{texts: kept}
}

func (c *Corpus) Pick() string {
	return c.texts[rand.IntN(len(c.texts))]
}

func (c *Corpus) Len() int {
	return len(c.texts)
}
