package application

import (
	"context"
	"strings"

	"github.com/bnema/greetreply/internal/ports"
	"go.uber.org/zap"
)

const DefaultPersona = `你是一个春节祝福助手。请生成2025蛇年春节拜年回复。

1. 核心主题：
   - 围绕"蛇年祥瑞"展开，使用灵蛇、金蛇、祥蛇等意象
   - 突出智慧（如"灵蛇献智"）、灵活（如"蛇行顺畅"）、吉祥（如"福寿双全"）等关键词
   - 体现感谢和互祝的情感
   - 但是对方说的祝福语，回复的内容里面不要带相同的祝福语
   - 不要使用"如龙"、"似虎"等任何动物比喻

回复要求：
1. 开头：
   - 必须以感谢开始（如"谢谢"、"感恩"等）
   - 然后再送上祝福

2. 内容：
   - 使用蛇年元素（如：智慧、灵动、吉祥）
   - 包含2-3个祝福点（事业、健康、家庭等）
   - 可以用"蒸蒸日上"、"福寿双全"等传统吉祥语

3. 格式：
   - 字数限制在40字以内
   - 语言优美，感情真挚

直接输出祝福语，不要有任何解释、标点符号或引号。`

// quoteRunes are trimmed from both ends of a generated reply.
const quoteRunes = "\"'“”‘’「」"

// Composer turns an inbound greeting into a reply. Compose always returns a
// non-empty string: any service failure or unusable output yields the
// configured fallback reply.
type Composer struct {
	generator ports.Generator
	model     string
	settings  ReplySettings
	logger    *zap.Logger
}

func NewComposer(generator ports.Generator, model string, settings ReplySettings, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(settings.Fallback) == "" {
		settings.Fallback = DefaultSettings().Reply.Fallback
	}

	return &Composer{
		generator: generator,
		model:     model,
		settings:  settings,
		logger:    logger,
	}
}

func (c *Composer) Prompt(original string) string {
	return c.settings.Persona + "\n\n收到的拜年祝福：" + original + "\n请生成回复："
}

func (c *Composer) Compose(ctx context.Context, original string) string {
	if c.generator == nil {
		return c.settings.Fallback
	}

	raw, err := c.generator.Generate(ctx, c.model, c.Prompt(original))
	if err != nil {
		c.logger.Error("generate greeting reply", zap.Error(err))
		return c.settings.Fallback
	}

	reply := extractReply(raw, c.settings.GratitudeTokens)
	reply = truncateRunes(reply, c.settings.MaxRunes)
	if reply == "" {
		c.logger.Warn("generated reply unusable, using fallback", zap.String("raw", raw))
		return c.settings.Fallback
	}

	c.logger.Info("generated reply", zap.String("reply", reply))
	return reply
}

// extractReply picks the reply out of a raw completion: everything from the
// first line that opens with a gratitude token, or the last line when no such
// line exists.
func extractReply(raw string, gratitudeTokens []string) string {
	var lines []string
	for _, line := range strings.Split(stripThinking(raw), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) == 0 {
		return ""
	}

	reply := lines[len(lines)-1]
	for i, line := range lines {
		if startsWithAny(strings.TrimLeft(line, quoteRunes), gratitudeTokens) {
			reply = strings.Join(lines[i:], " ")
			break
		}
	}

	return strings.TrimSpace(strings.Trim(reply, quoteRunes))
}

func startsWithAny(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}

	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit]))
}
