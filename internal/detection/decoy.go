package detection

import (
	"math/rand/v2"
	"strings"
	"sync"
)

// RandSource supplies the decoy generator's randomness. *rand.Rand satisfies it.
type RandSource interface {
	IntN(n int) int
}

// globalRand uses math/rand/v2's top-level functions, which are safe for concurrent use
type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// lockedRand serializes access to a non-thread-safe source
type lockedRand struct {
	mu  sync.Mutex
	src RandSource
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}

// NewSeededRand returns a deterministic RandSource that is safe for concurrent use
func NewSeededRand(seed uint64) RandSource {
	return &lockedRand{src: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

var fillers = []string{
	"Oh no,",
	"Hmm,",
	"Wait,",
	"Sorry,",
	"Oh dear,",
	"Okay okay,",
}

var genericReplies = []string{
	"Can you explain this again? I'm not sure I understand.",
	"I'm a bit confused, what exactly do I need to do now?",
	"Sorry, I was away for a minute. What were you saying?",
	"Okay, but why is this happening to my account?",
	"Is this really from the bank? My son usually handles these things.",
	"Please give me a moment, I am trying to follow what you said.",
}

const (
	replyPaymentHandle = "I have two UPI apps on my phone, which one should I use to send it?"
	replyLink          = "the link is not opening on my phone, it just shows a blank page. Is there another way?"
	replyAccountBlock  = "why would my account be suspended suddenly? I used it just yesterday."
	replyPhoneCall     = "I can't take calls right now, I'm at work. Can we continue here by message?"
	replyFirstMessage  = "I don't understand, what is the problem with my account?"
)

// DecoyGenerator produces stalling replies that keep a scammer talking.
// Replies never echo extracted artifacts or classifier output.
type DecoyGenerator struct {
	cues ReplyCues
	rand RandSource
}

// NewDecoyGenerator creates a generator. A nil src uses the global math/rand/v2 source.
func NewDecoyGenerator(patterns *PatternLibrary, src RandSource) *DecoyGenerator {
	if src == nil {
		src = globalRand{}
	}
	return &DecoyGenerator{cues: patterns.Cues(), rand: src}
}

// Reply picks a reply for text given the session's post-append message count.
// The first matching topic wins.
func (g *DecoyGenerator) Reply(text string, messageCount int) string {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, g.cues.PaymentHandle):
		return g.withFiller(replyPaymentHandle)
	case containsAny(lower, g.cues.Link):
		return g.withFiller(replyLink)
	case containsAny(lower, g.cues.AccountBlock):
		return g.withFiller(replyAccountBlock)
	case containsAny(lower, g.cues.PhoneCall):
		return g.withFiller(replyPhoneCall)
	case messageCount <= 1:
		return g.withFiller(replyFirstMessage)
	default:
		return genericReplies[g.rand.IntN(len(genericReplies))]
	}
}

func (g *DecoyGenerator) withFiller(body string) string {
	return fillers[g.rand.IntN(len(fillers))] + " " + body
}
