// Package translate renders user-facing messages in the caller's locale.
package translate

import (
	"log"
	"sync"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printer     *message.Printer
	printerOnce sync.Once
)

// Printer returns the message printer matched to the user's locales,
// falling back to en-US.
func Printer() *message.Printer {
	printerOnce.Do(func() {
		locales, err := locale.GetLocales()
		if err != nil {
			log.Printf("ebpfvm: locale: %v", err)
		}

		tags := []language.Tag{}
		for _, name := range locales {
			tag, err := language.Parse(name)
			if err != nil {
				continue
			}
			tags = append(tags, tag)
		}
		if len(tags) == 0 {
			tags = []language.Tag{language.AmericanEnglish}
		}

		printer = message.NewPrinter(tags[0])
	})

	return printer
}

// From formats an en-US Sprintf() format in the user's locale.
func From(key message.Reference, args ...any) string {
	return Printer().Sprintf(key, args...)
}
