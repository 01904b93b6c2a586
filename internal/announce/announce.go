// Package announce notifies downstream consumers over NATS when a
// generation goes live. Announcements are best effort: a publish is
// complete once the artifacts are swapped in, whether or not anyone
// hears about it.
package announce

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"faa_registry/internal/manifest"
)

// SubjectPrefix is the subject space for registry publish events. The
// generation name is appended as the final token.
const SubjectPrefix = "registry.publish"

const (
	connectTimeout = 5 * time.Second
	flushTimeout   = 5 * time.Second
)

// Subject returns the announcement subject for a generation. Characters
// with structural meaning in NATS subjects are replaced, so any accepted
// generation name yields a single valid token.
func Subject(generation string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '\t', '*', '>':
			return '-'
		}
		return r
	}, generation)
	return SubjectPrefix + "." + token
}

// Publish sends the publish manifest to the generation's subject and
// flushes before returning. The returned subject is what consumers
// subscribe to.
func Publish(url string, m *manifest.Publish) (string, error) {
	if m == nil || m.Generation == "" {
		return "", fmt.Errorf("announce: manifest has no generation")
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal announcement: %w", err)
	}

	nc, err := nats.Connect(url,
		nats.Name("faa_registry"),
		nats.Timeout(connectTimeout),
	)
	if err != nil {
		return "", fmt.Errorf("connect nats %s: %w", url, err)
	}
	defer nc.Close()

	subject := Subject(m.Generation)
	if err := nc.Publish(subject, payload); err != nil {
		return "", fmt.Errorf("publish announcement: %w", err)
	}
	if err := nc.FlushTimeout(flushTimeout); err != nil {
		return "", fmt.Errorf("flush announcement: %w", err)
	}
	return subject, nil
}
