package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"longform.lol/bech32encoding"
	"longform.lol/client"
	"longform.lol/context"
	"longform.lol/errorf"
)

type PublishCmd struct {
	Title   string `arg:"-t,required" help:"article title"`
	Summary string `arg:"-s" help:"short summary"`
	Image   string `arg:"-i" help:"header image url"`
	File    string `arg:"positional" default:"-" help:"markdown file, - reads standard input"`
}

func (p *PublishCmd) Run(c context.T, cl *client.T) (err error) {
	var content []byte
	if p.File == "-" {
		content, err = io.ReadAll(os.Stdin)
	} else {
		content, err = os.ReadFile(p.File)
	}
	if err != nil {
		return
	}
	if err = cl.Authenticate(c); err != nil {
		return
	}
	a, err := cl.PublishArticle(c, p.Title, string(content), p.Summary, p.Image)
	if err != nil {
		return
	}
	fmt.Printf("%s %s\n", a.Event.IDString(), a.Identifier)
	return
}

type NoteCmd struct {
	Content string `arg:"positional,required" help:"text of the note"`
}

func (n *NoteCmd) Run(c context.T, cl *client.T) (err error) {
	if err = cl.Authenticate(c); err != nil {
		return
	}
	ev, err := cl.PublishNote(c, n.Content)
	if err != nil {
		return
	}
	fmt.Println(ev.IDString())
	return
}

type FeedCmd struct {
	Authors []string `arg:"positional" help:"npub or hex keys of the authors, everyone when empty"`
	Follow  bool     `arg:"-f" help:"keep printing new articles until interrupted"`
}

func (f *FeedCmd) Run(c context.T, cl *client.T) (err error) {
	s, err := cl.SubscribeToArticles(c, f.Authors...)
	if err != nil {
		return
	}
	defer s.Cancel()
	select {
	case <-s.Loaded():
	case <-c.Done():
		return
	}
	for _, a := range s.Articles() {
		printArticle(a.Event.IDString(), a.Author(), a.TitleOrDefault(), a.Published().Time())
	}
	if !f.Follow {
		return
	}
	for {
		select {
		case u, ok := <-s.Updates():
			if !ok {
				return
			}
			for _, a := range u.Added {
				printArticle(a.Event.IDString(), a.Author(), a.TitleOrDefault(), a.Published().Time())
			}
		case <-c.Done():
			return
		}
	}
}

func printArticle(id, author, title string, published time.Time) {
	name, err := bech32encoding.EncodeIdentity(author)
	if err != nil {
		name = author
	}
	fmt.Printf("%s  %s  %s\n  %s\n", published.Format(time.DateOnly), name, title, id)
}

type ProfileCmd struct {
	Key string `arg:"positional" help:"npub or hex key, the logged in user when empty"`
}

func (p *ProfileCmd) Run(c context.T, cl *client.T) (err error) {
	key := strings.TrimSpace(p.Key)
	switch {
	case key == "":
		if err = cl.Authenticate(c); err != nil {
			return
		}
		key = cl.PublicKey()
	case strings.HasPrefix(key, bech32encoding.PubHRP):
		if key, err = client.DecodeIdentity(key); err != nil {
			return
		}
	}
	pr, err := cl.GetProfile(c, key)
	if err != nil {
		return
	}
	for _, kv := range [][2]string{
		{"name", pr.BestName()},
		{"about", pr.About},
		{"picture", pr.Picture},
		{"nip05", pr.Nip05},
		{"lud16", pr.Lud16},
	} {
		if kv[1] != "" {
			fmt.Printf("%-8s %s\n", kv[0], kv[1])
		}
	}
	return
}

type NpubCmd struct {
	Hex string `arg:"positional,required" help:"hex public key"`
}

func (n *NpubCmd) Run(context.T, *client.T) (err error) {
	npub, err := client.EncodeIdentity(strings.TrimSpace(n.Hex))
	if err != nil {
		return
	}
	fmt.Println(npub)
	return
}

type DecodeCmd struct {
	Npub string `arg:"positional,required" help:"npub to decode"`
}

func (d *DecodeCmd) Run(context.T, *client.T) (err error) {
	pub, err := client.DecodeIdentity(strings.TrimSpace(d.Npub))
	if err != nil {
		return
	}
	fmt.Println(pub)
	return
}

type WhoamiCmd struct{}

func (WhoamiCmd) Run(c context.T, cl *client.T) (err error) {
	if err = cl.Authenticate(c); err != nil {
		return
	}
	id := cl.Session().Identity()
	if id == nil {
		return errorf.E("not logged in")
	}
	npub, err := id.Npub()
	if err != nil {
		return
	}
	fmt.Printf("%s %s (%s)\n", npub, id.PublicKeyHex(), id.Mode)
	return
}

type RelaysCmd struct{}

func (RelaysCmd) Run(c context.T, cl *client.T) (err error) {
	for _, r := range cl.Relays(c) {
		var mode string
		if r.Read {
			mode += "r"
		}
		if r.Write {
			mode += "w"
		}
		fmt.Printf("%-2s %s\n", mode, r.URL)
		if r.InfoErr != nil {
			fmt.Printf("   no information: %v\n", r.InfoErr)
			continue
		}
		fmt.Printf("   %s %s %s\n", r.Info.Name, r.Info.Software, r.Info.Version)
		fmt.Printf("   nips %v auth required %v\n", r.Info.Nips, r.Info.RequiresAuth())
	}
	return
}
