package cdpdriver

import (
	"github.com/chromedp/cdproto/input"

	"auto_resume_go/resolver"
)

type keyDef struct {
	key      string
	code     string
	vk       int64
	text     string
	modifier input.Modifier
}

var keyTable = map[string]keyDef{
	resolver.KeyEnter:     {key: "Enter", code: "Enter", vk: 13, text: "\r"},
	resolver.KeyTab:       {key: "Tab", code: "Tab", vk: 9},
	resolver.KeyBackspace: {key: "Backspace", code: "Backspace", vk: 8},
	resolver.KeyEscape:    {key: "Escape", code: "Escape", vk: 27},
	resolver.KeyControl:   {key: "Control", code: "ControlLeft", vk: 17, modifier: input.ModifierCtrl},
	resolver.KeyMeta:      {key: "Meta", code: "MetaLeft", vk: 91, modifier: input.ModifierMeta},
	resolver.KeyA:         {key: "a", code: "KeyA", vk: 65, text: "a"},
}

// lookupKey 未登记的单字符按普通字符处理
func lookupKey(name string) keyDef {
	if def, ok := keyTable[name]; ok {
		return def
	}
	return keyDef{key: name, text: name}
}

func (k keyDef) event(typ input.KeyType, mods input.Modifier) *input.DispatchKeyEventParams {
	ev := input.DispatchKeyEvent(typ).
		WithKey(k.key).
		WithCode(k.code).
		WithWindowsVirtualKeyCode(k.vk).
		WithModifiers(mods)
	// 按住 Ctrl/Meta 时不产生字符，全选需要显式命令
	if mods&(input.ModifierCtrl|input.ModifierMeta) != 0 {
		if k.code == "KeyA" && typ == input.KeyDown {
			ev = ev.WithCommands([]string{"selectAll"})
		}
		return ev
	}
	if typ == input.KeyDown && k.text != "" {
		ev = ev.WithText(k.text)
	}
	return ev
}
