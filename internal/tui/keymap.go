package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// keyMap holds the grid bindings shown in help.
type keyMap struct {
	quit         key.Binding
	reload       key.Binding
	toggleHelp   key.Binding
	moveLeft     key.Binding
	moveRight    key.Binding
	moveUp       key.Binding
	moveDown     key.Binding
	pageUp       key.Binding
	pageDown     key.Binding
	home         key.Binding
	end          key.Binding
	freeze       key.Binding
	unfreezeAll  key.Binding
	sort         key.Binding
	selectRow    key.Binding
	widen        key.Binding
	narrow       key.Binding
	filter       key.Binding
	addFilter    key.Binding
	removeFilter key.Binding
	editCell     key.Binding
	saveState    key.Binding
	copyRows     key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:     key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:    key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "row up")),
		moveDown:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "row down")),
		pageUp:       key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
		pageDown:     key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
		home:         key.NewBinding(key.WithKeys("home", "0"), key.WithHelp("home", "first column")),
		end:          key.NewBinding(key.WithKeys("end", "$"), key.WithHelp("end", "last column")),
		freeze:       key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "freeze column")),
		unfreezeAll:  key.NewBinding(key.WithKeys("F", "shift+f"), key.WithHelp("F", "unfreeze all")),
		sort:         key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort column")),
		selectRow:    key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "select row")),
		widen:        key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "widen column")),
		narrow:       key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "narrow column")),
		filter:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter bar")),
		addFilter:    key.NewBinding(key.WithKeys("+"), key.WithHelp("+", "add filter")),
		removeFilter: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "remove filter")),
		editCell:     key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "edit cell")),
		saveState:    key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "save view")),
		copyRows:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy rows")),
	}
}

// applyConfig overrides configurable bindings, keeping defaults for blank values.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.freeze, cfg.Freeze, "f", "freeze column")
	configureBinding(&k.unfreezeAll, cfg.UnfreezeAll, "F", "unfreeze all")
	configureBinding(&k.filter, cfg.Filter, "/", "filter bar")
	configureBinding(&k.sort, cfg.Sort, "s", "sort column")
	configureBinding(&k.addFilter, cfg.AddFilter, "+", "add filter")
	configureBinding(&k.removeFilter, cfg.RemoveFilter, "-", "remove filter")
}

// configureBinding replaces the keys and help of one binding.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, help := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(help, desc)
}

// parseBindingKeys turns a configured key into matcher keys and a help label. Single uppercase
// runes also match their shift+ form.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	value := strings.TrimSpace(raw)
	if raw == " " {
		value = "space"
	}
	if value == "" {
		value = fallback
	}
	if strings.EqualFold(value, "space") {
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(value) == 1 {
		r, _ := utf8.DecodeRuneInString(value)
		if unicode.IsUpper(r) {
			return []string{value, "shift+" + strings.ToLower(value)}, value
		}
		return []string{value}, value
	}
	return []string{strings.ToLower(value)}, value
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.freeze, k.sort, k.filter, k.editCell, k.saveState, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.pageUp, k.pageDown, k.home, k.end},
		{k.freeze, k.unfreezeAll, k.sort, k.selectRow, k.copyRows, k.widen, k.narrow},
		{k.filter, k.addFilter, k.removeFilter, k.editCell, k.saveState, k.reload, k.toggleHelp, k.quit},
	}
}
