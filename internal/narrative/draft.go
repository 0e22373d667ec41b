package narrative

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxTitleLength bounds generated titles; longer text is cut at a word.
const maxTitleLength = 120

// Draft is a task title and description written from free-form user input.
type Draft struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	TitleMessage       string `json:"titleMessage"`
	DescriptionMessage string `json:"descriptionMessage"`
}

// Drafter turns a user's description of some work into a task draft.
type Drafter interface {
	Draft(ctx context.Context, userInput string) (Draft, error)
}

// DrafterFor returns g itself when it can draft tasks and the template
// drafter otherwise.
func DrafterFor(g Generator) Drafter {
	if d, ok := g.(Drafter); ok {
		return d
	}
	return Template{}
}

// Draft uses the input as the title and a fixed sentence as description.
func (Template) Draft(_ context.Context, userInput string) (Draft, error) {
	title := cleanTitle(userInput)
	return Draft{
		Title:              title,
		Description:        fmt.Sprintf("Description for %q", title),
		TitleMessage:       "Title taken from your input.",
		DescriptionMessage: "Description generated from the title.",
	}, nil
}

// cleanTitle trims whitespace and surrounding quotes, keeps the first line
// and shortens it to maxTitleLength.
func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.Trim(s, `"'`)
	s = strings.TrimPrefix(s, "Title:")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxTitleLength {
		return s
	}
	cut := string([]rune(s)[:maxTitleLength])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
