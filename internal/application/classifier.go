package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/greetreply/internal/domain"
	"github.com/bnema/greetreply/internal/ports"
	"go.uber.org/zap"
)

const classificationPrompt = `请判断以下消息是否是拜年信息或新年祝福。请只回答"是"或"否"，不要有任何解释或其他内容。

判断标准：
1. 包含新年、春节、年等相关祝福
2. 表达了祝福、问候的意思
3. 节日相关的祝愿（如：恭喜发财、大吉大利等）

消息内容：%s

只需要回答一个字："是"或"否"：`

var affirmativeVerdicts = []string{"是", "yes"}

// Classifier decides whether an inbound message is a festive greeting.
// Keyword hits never reach the generation service.
type Classifier struct {
	generator ports.Generator
	model     string
	keywords  []string
	logger    *zap.Logger
}

func NewClassifier(generator ports.Generator, model string, keywords []string, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Classifier{
		generator: generator,
		model:     model,
		keywords:  keywords,
		logger:    logger,
	}
}

func (c *Classifier) IsGreeting(ctx context.Context, message string) bool {
	if domain.ContainsAny(message, c.keywords) {
		c.logger.Info("greeting matched by keyword", zap.String("message", message))
		return true
	}

	if c.generator == nil {
		return false
	}

	raw, err := c.generator.Generate(ctx, c.model, fmt.Sprintf(classificationPrompt, message))
	if err != nil {
		c.logger.Error("classify message", zap.String("message", message), zap.Error(err))
		return domain.ContainsAny(message, c.keywords)
	}

	verdict := normalizeVerdict(raw)
	c.logger.Info("greeting classified by model",
		zap.String("message", message),
		zap.String("verdict", verdict))

	if verdict == "" {
		return domain.ContainsAny(message, c.keywords)
	}

	for _, yes := range affirmativeVerdicts {
		if verdict == yes {
			return true
		}
	}
	return false
}

func normalizeVerdict(raw string) string {
	cleaned := strings.TrimSpace(stripThinking(raw))
	firstLine, _, _ := strings.Cut(cleaned, "\n")
	verdict := strings.ToLower(strings.TrimSpace(firstLine))
	return strings.TrimRight(verdict, "。.！!")
}
