package game

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SeededSource derives spin conditions from a committed server seed, a client
// seed and a nonce. Each HMAC-SHA256 round yields 32 bytes; every float eats 4.
type SeededSource struct {
	serverSeed string
	clientSeed string
	nonce      int
	round      int
	pos        int
	buffer     [32]byte
}

func NewSeededSource(serverSeed, clientSeed string, nonce int) *SeededSource {
	s := &SeededSource{
		serverSeed: serverSeed,
		clientSeed: clientSeed,
		nonce:      nonce,
	}
	s.fill()
	return s
}

func (s *SeededSource) fill() {
	h := hmac.New(sha256.New, []byte(s.serverSeed))
	h.Write([]byte(fmt.Sprintf("%s:%d:%d", s.clientSeed, s.nonce, s.round)))
	copy(s.buffer[:], h.Sum(nil))
	s.pos = 0
}

func (s *SeededSource) next() byte {
	if s.pos >= len(s.buffer) {
		s.round++
		s.fill()
	}
	b := s.buffer[s.pos]
	s.pos++
	return b
}

// Float returns a value in [0, 1) built from the next four bytes.
func (s *SeededSource) Float() float64 {
	result := 0.0
	divider := 1.0
	for i := 0; i < 4; i++ {
		divider *= 256
		result += float64(s.next()) / divider
	}
	return result
}

func (s *SeededSource) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.Float()
}

// GenerateSeed creates a cryptographically secure random seed
func GenerateSeed() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// HashCommitment creates a SHA256 hash of the seed for commitment
func HashCommitment(seed string) string {
	h := sha256.New()
	h.Write([]byte(seed))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySpin lets a player recompute the pocket of a revealed spin. The
// wheel angle at launch is published alongside the commitment.
func VerifySpin(cfg PhysicsConfig, serverSeed, clientSeed string, nonce int, wheelAngle float64) (SpinOutcome, error) {
	if err := cfg.Validate(); err != nil {
		return SpinOutcome{}, err
	}
	cond := DrawConditions(cfg, NewSeededSource(serverSeed, clientSeed, nonce), wheelAngle)
	return Replay(cfg, cond, DEFAULT_TICK_BUDGET)
}

// VerifyCommitment checks a revealed server seed against its published hash.
func VerifyCommitment(serverSeed, commitment string) bool {
	return hmac.Equal([]byte(HashCommitment(serverSeed)), []byte(commitment))
}
