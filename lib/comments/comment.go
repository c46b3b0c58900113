package comments

import (
	"time"

	"github.com/ether/etherdoc/lib/models/doc"
)

// isoLayout matches the timestamps browsers produce with toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

type Reply struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Resolved  bool      `json:"resolved"`
	Replies   []Reply   `json:"replies"`
	// Text is the commented text as captured when the comment was added.
	Text string `json:"text"`

	// Detached is set while the commented text is gone from the document.
	Detached bool `json:"detached"`
	Deleted  bool `json:"-"`
}

func (c *Comment) clone() Comment {
	out := *c
	out.Replies = append([]Reply(nil), c.Replies...)
	return out
}

func (c *Comment) attached() bool {
	return !c.Detached && !c.Deleted
}

type ReplyRecord struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Record is the persisted form of a comment.
type Record struct {
	ID        string        `json:"id"`
	Author    string        `json:"author"`
	Content   string        `json:"content"`
	Timestamp string        `json:"timestamp"`
	Resolved  bool          `json:"resolved"`
	Replies   []ReplyRecord `json:"replies"`
	Text      string        `json:"text"`
	From      doc.Position  `json:"from"`
	To        doc.Position  `json:"to"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func (c *Comment) toRecord(r doc.Range) Record {
	rec := Record{
		ID:        c.ID,
		Author:    c.Author,
		Content:   c.Content,
		Timestamp: formatTime(c.Timestamp),
		Resolved:  c.Resolved,
		Replies:   make([]ReplyRecord, len(c.Replies)),
		Text:      c.Text,
		From:      r.From,
		To:        r.To,
	}
	for i, reply := range c.Replies {
		rec.Replies[i] = ReplyRecord{
			ID:        reply.ID,
			Author:    reply.Author,
			Content:   reply.Content,
			Timestamp: formatTime(reply.Timestamp),
		}
	}
	return rec
}

func fromRecord(rec Record) (*Comment, error) {
	ts, err := parseTime(rec.Timestamp)
	if err != nil {
		return nil, err
	}
	c := &Comment{
		ID:        rec.ID,
		Author:    rec.Author,
		Content:   rec.Content,
		Timestamp: ts,
		Resolved:  rec.Resolved,
		Text:      rec.Text,
	}
	for _, r := range rec.Replies {
		rts, err := parseTime(r.Timestamp)
		if err != nil {
			return nil, err
		}
		c.Replies = append(c.Replies, Reply{ID: r.ID, Author: r.Author, Content: r.Content, Timestamp: rts})
	}
	return c, nil
}
