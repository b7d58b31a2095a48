package tts

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/satriahrh/interviewer/domain/repositories"
)

const defaultCacheSize = 128

// CachedTextToSpeech remembers synthesized audio per voice and text.
// Greetings are spoken at the start of every interview.
type CachedTextToSpeech struct {
	next   repositories.TextToSpeech
	cache  *lru.Cache[string, []byte]
	logger *zap.Logger
}

var _ repositories.TextToSpeech = (*CachedTextToSpeech)(nil)

// NewCachedTextToSpeech wraps next with an LRU cache holding size entries
func NewCachedTextToSpeech(next repositories.TextToSpeech, size int, logger *zap.Logger) (*CachedTextToSpeech, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio cache: %w", err)
	}
	return &CachedTextToSpeech{next: next, cache: cache, logger: logger}, nil
}

// ConvertTextToSpeech implements repositories.TextToSpeech
func (c *CachedTextToSpeech) ConvertTextToSpeech(ctx context.Context, text string, voice repositories.VoiceConfig) (<-chan []byte, error) {
	key := cacheKey(text, voice)
	if audio, ok := c.cache.Get(key); ok {
		c.logger.Debug("Audio cache hit", zap.String("voice", voice.Name))
		return chunked(audio, defaultChunkSize), nil
	}

	stream, err := c.next.ConvertTextToSpeech(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	audio, err := repositories.CollectAudio(ctx, stream)
	if err != nil {
		return nil, err
	}
	if len(audio) > 0 {
		c.cache.Add(key, audio)
	}
	return chunked(audio, defaultChunkSize), nil
}

// Len returns the number of cached entries
func (c *CachedTextToSpeech) Len() int {
	return c.cache.Len()
}

func cacheKey(text string, voice repositories.VoiceConfig) string {
	return voice.LanguageCode + "\x00" + voice.Name + "\x00" + text
}
