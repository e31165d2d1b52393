package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccountFilterIsSpecial(t *testing.T) {
	f := DefaultAccountFilter()

	assert.True(t, f.IsSpecial("文件传输助手", "文件传输助手"))
	assert.True(t, f.IsSpecial("2微信支付条新消息", "微信支付"))
	assert.False(t, f.IsSpecial("3小明条新消息", "小明"))
	assert.False(t, f.IsSpecial("微信支付小助手", "微信支付小助手"))
}

func TestAccountFilterIsGroup(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		preview string
		want    bool
	}{
		{name: "group name", label: "3老同学群条新消息", want: true},
		{name: "association", label: "江苏商会", want: true},
		{name: "preview member count", label: "周末羽毛球", preview: "[群消息] 小李: 新年好", want: true},
		{name: "muted preview", label: "家人们", preview: "消息免打扰", want: true},
		{name: "direct chat", label: "小明", preview: "新年快乐！", want: false},
		{name: "empty label", label: "", preview: "[群消息]", want: false},
	}

	f := DefaultAccountFilter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.IsGroup(tt.label, tt.preview))
		})
	}
}

func TestAccountFilterSkipGroupsDisabled(t *testing.T) {
	f := DefaultAccountFilter()
	f.SkipGroups = false

	assert.False(t, f.IsGroup("老同学群", "[群消息]"))
}

func TestContainsAnyIgnoresEmptyNeedles(t *testing.T) {
	assert.False(t, ContainsAny("新年快乐", []string{"", "圣诞"}))
	assert.True(t, ContainsAny("新年快乐", []string{"", "快乐"}))
	assert.False(t, ContainsAny("新年快乐", nil))
}
