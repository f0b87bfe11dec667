package notification

import (
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generator produces valid sample notifications. The same seed always
// yields the same sequence.
type Generator struct {
	rnd      *rand.Rand
	sessions []string
}

// NewGenerator creates a generator with a pool of sessions
func NewGenerator(seed int64) *Generator {
	g := &Generator{
		rnd: rand.New(rand.NewSource(seed)),
	}
	for i := 0; i < 3; i++ {
		g.sessions = append(g.sessions, g.id())
	}
	return g
}

// Next returns one notification
func (g *Generator) Next() Notification {
	return Notification{
		ID:          g.id(),
		SessionID:   g.sessions[g.rnd.Intn(len(g.sessions))],
		Type:        Types[g.rnd.Intn(len(Types))],
		Title:       g.text(TitleLength),
		Description: g.text(DescriptionLength),
	}
}

// Sample returns n notifications
func (g *Generator) Sample(n int) []Notification {
	out := make([]Notification, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.Next())
	}
	return out
}

// id derives a fixed-length identifier from a uuid drawn from the seeded source
func (g *Generator) id() string {
	u, err := uuid.NewRandomFromReader(g.rnd)
	if err != nil {
		// rand.Rand never fails to read
		panic(err)
	}
	return strings.ReplaceAll(u.String(), "-", "")[:IDLength]
}

func (g *Generator) text(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[g.rnd.Intn(len(alphabet))])
	}
	return b.String()
}
