package client

import (
	"longform.lol/article"
	"longform.lol/event"
	"longform.lol/feed"
	"longform.lol/log"
)

// ArticleUpdate is a feed.Update read as articles.
type ArticleUpdate struct {
	Added    []*article.T
	Articles []*article.T
}

// ArticleStream is a merged feed of articles from every readable relay.
type ArticleStream struct {
	stream  *feed.Stream
	updates chan ArticleUpdate
	done    chan struct{}
}

func newArticleStream(s *feed.Stream) (as *ArticleStream) {
	as = &ArticleStream{
		stream:  s,
		updates: make(chan ArticleUpdate),
		done:    make(chan struct{}),
	}
	go as.convert()
	return
}

func toArticles(evs []*event.T) (out []*article.T) {
	out = make([]*article.T, 0, len(evs))
	for _, ev := range evs {
		a, err := article.FromEvent(ev)
		if err != nil {
			log.D.F("skipping %s: %v", ev.IDString(), err)
			continue
		}
		out = append(out, a)
	}
	return
}

func (as *ArticleStream) convert() {
	defer func() {
		close(as.updates)
		close(as.done)
	}()
	ctx := as.stream.Context()
	for u := range as.stream.Updates() {
		au := ArticleUpdate{Added: toArticles(u.Added), Articles: toArticles(u.Items)}
		select {
		case as.updates <- au:
		case <-ctx.Done():
			return
		}
	}
}

// Updates delivers the newly merged articles and the whole feed, newest
// first. It is closed when the stream ends.
func (as *ArticleStream) Updates() <-chan ArticleUpdate { return as.updates }

// Loaded is closed once every relay has sent its stored articles or dropped
// out.
func (as *ArticleStream) Loaded() <-chan struct{} { return as.stream.Loaded() }

// Articles is a snapshot of the feed, newest first.
func (as *ArticleStream) Articles() []*article.T { return toArticles(as.stream.Items()) }

// Cancel closes the relay subscriptions of this stream. No update is delivered
// after it returns.
func (as *ArticleStream) Cancel() {
	as.stream.Cancel()
	<-as.done
}
