package memory

import (
	"fmt"
	"net/url"
	"strconv"
)

const Scheme = "mem"

// Seed describes the content of a queue created from a mem:// endpoint.
type Seed struct {
	Messages   int
	Sessions   int
	DeadLetter int
}

// ParseURL reads a seed from an endpoint such as
// mem://?messages=50&sessions=2&dead-letter=10. A positive sessions value
// makes the queue session-enabled and spreads the messages over that many
// sessions.
func ParseURL(raw string) (Seed, error) {
	var res Seed

	u, err := url.Parse(raw)
	if err != nil {
		return res, fmt.Errorf("parse %q: %w", raw, err)
	}
	if u.Scheme != Scheme {
		return res, fmt.Errorf("unexpected scheme %q, want %q", u.Scheme, Scheme)
	}

	q := u.Query()
	fields := []struct {
		key string
		dst *int
	}{
		{"messages", &res.Messages},
		{"sessions", &res.Sessions},
		{"dead-letter", &res.DeadLetter},
	}
	for _, f := range fields {
		v := q.Get(f.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return res, fmt.Errorf("%s: invalid count %q", f.key, v)
		}
		*f.dst = n
	}

	return res, nil
}

// Open creates a broker holding one queue seeded from the mem:// endpoint raw.
func Open(raw, queueName string) (*Broker, error) {
	seed, err := ParseURL(raw)
	if err != nil {
		return nil, err
	}

	res := NewBroker()
	if seed.Sessions > 0 {
		res.CreateQueue(queueName, WithSessions())
	} else {
		res.CreateQueue(queueName)
	}

	msgs := make([]Message, 0, seed.Messages)
	for i := 0; i < seed.Messages; i++ {
		msg := Message{Body: []byte("message " + strconv.Itoa(i))}
		if seed.Sessions > 0 {
			msg.SessionID = "session-" + strconv.Itoa(i%seed.Sessions)
		}
		msgs = append(msgs, msg)
	}
	if err := res.Send(queueName, msgs...); err != nil {
		return nil, err
	}

	dead := make([]Message, 0, seed.DeadLetter)
	for i := 0; i < seed.DeadLetter; i++ {
		dead = append(dead, Message{Body: []byte("dead letter " + strconv.Itoa(i))})
	}
	if err := res.SendDeadLetter(queueName, dead...); err != nil {
		return nil, err
	}

	return res, nil
}
