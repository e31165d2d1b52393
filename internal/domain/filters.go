package domain

import "strings"

var DefaultSpecialAccounts = []string{
	"文件传输助手",
	"订阅号",
	"订阅号消息",
	"微信支付",
	"微信团队",
	"服务通知",
	"QQ邮箱提醒",
	"腾讯新闻",
}

var DefaultGroupNameIndicators = []string{
	"群聊", "群", "交流群", "讨论组", "社群",
	"商会", "协会", "班级", "支部", "联盟",
	"内购群", "粉丝群",
}

var DefaultGroupPreviewIndicators = []string{
	"个成员", "[群消息]", "条]", "消息免打扰",
}

// AccountFilter decides which conversation entries must never get a reply.
type AccountFilter struct {
	SpecialAccounts        []string
	SkipGroups             bool
	GroupNameIndicators    []string
	GroupPreviewIndicators []string
}

func DefaultAccountFilter() AccountFilter {
	return AccountFilter{
		SpecialAccounts:        append([]string(nil), DefaultSpecialAccounts...),
		SkipGroups:             true,
		GroupNameIndicators:    append([]string(nil), DefaultGroupNameIndicators...),
		GroupPreviewIndicators: append([]string(nil), DefaultGroupPreviewIndicators...),
	}
}

// IsSpecial reports whether the raw label or the parsed contact names a
// system or service account.
func (f AccountFilter) IsSpecial(label string, contact ContactID) bool {
	for _, account := range f.SpecialAccounts {
		if label == account || string(contact) == account {
			return true
		}
	}
	return false
}

func (f AccountFilter) IsGroup(name, preview string) bool {
	if !f.SkipGroups || name == "" {
		return false
	}
	if ContainsAny(name, f.GroupNameIndicators) {
		return true
	}
	return preview != "" && ContainsAny(preview, f.GroupPreviewIndicators)
}

// ContainsAny reports whether s contains any non-empty needle.
func ContainsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if needle != "" && strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
