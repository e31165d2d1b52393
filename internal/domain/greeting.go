package domain

var DefaultGreetingKeywords = []string{
	"新年", "春节", "年", "拜年",
	"蛇年", "祝", "福", "恭喜",
	"吉祥", "如意", "快乐", "顺遂",
	"发财", "大吉", "好运", "幸福",
	"祥瑞", "美满", "健康", "平安",
}

var DefaultGratitudeTokens = []string{"谢谢", "感谢", "感恩"}

const DefaultFallbackReply = "谢谢您的祝福！祝您蛇年大吉，万事如意！"
