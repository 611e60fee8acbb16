// Package article reads and writes NIP-23 long form articles, kind 30023
// events whose title, summary, image and publication time live in tags.
package article

import (
	"errors"
	"strconv"
	"time"

	"longform.lol/event"
	"longform.lol/kind"
	"longform.lol/tag"
	"longform.lol/tags"
	"longform.lol/timestamp"
)

const (
	IdentifierTag  = "d"
	TitleTag       = "title"
	SummaryTag     = "summary"
	ImageTag       = "image"
	PublishedAtTag = "published_at"
)

// ErrNotArticle is an event of another kind.
var ErrNotArticle = errors.New("event is not a long form article")

// T is an article event with its tag fields pulled out. Missing tags leave
// their field empty.
type T struct {
	Event       *event.T
	Identifier  string
	Title       string
	Summary     string
	Image       string
	PublishedAt *timestamp.T
}

// New builds the unsigned event for an article published at now. Summary and
// image are left out when empty.
func New(title, content, summary, image string, now time.Time) (ev *event.T) {
	t := tags.New(
		tag.New(IdentifierTag, "article-"+strconv.FormatInt(now.UnixMilli(), 10)),
		tag.New(TitleTag, title),
	)
	if summary != "" {
		t.Append(tag.New(SummaryTag, summary))
	}
	if image != "" {
		t.Append(tag.New(ImageTag, image))
	}
	t.Append(tag.New(PublishedAtTag, strconv.FormatInt(now.Unix(), 10)))
	return &event.T{
		CreatedAt: timestamp.FromTime(now),
		Kind:      kind.LongFormContent,
		Tags:      t,
		Content:   []byte(content),
	}
}

// FromEvent reads the article fields of ev.
func FromEvent(ev *event.T) (a *T, err error) {
	if ev == nil || !ev.Kind.Equal(kind.LongFormContent) {
		return nil, ErrNotArticle
	}
	a = &T{Event: ev}
	first := func(key string) string {
		if t := ev.Tags.GetFirst([]byte(key)); t != nil {
			return string(t.Value())
		}
		return ""
	}
	a.Identifier = first(IdentifierTag)
	a.Title = first(TitleTag)
	a.Summary = first(SummaryTag)
	a.Image = first(ImageTag)
	if p := first(PublishedAtTag); p != "" {
		if n, perr := strconv.ParseInt(p, 10, 64); perr == nil {
			a.PublishedAt = timestamp.FromUnix(n)
		}
	}
	return
}

// Content is the markdown body.
func (a *T) Content() string { return string(a.Event.Content) }

// Author is the hex public key of the author.
func (a *T) Author() string { return a.Event.PubKeyString() }

// Published is the publication time, falling back to created_at.
func (a *T) Published() *timestamp.T {
	if a.PublishedAt != nil {
		return a.PublishedAt
	}
	return a.Event.CreatedAt
}

// TitleOrDefault is the title, or Untitled when there is none.
func (a *T) TitleOrDefault() string {
	if a.Title == "" {
		return "Untitled"
	}
	return a.Title
}
