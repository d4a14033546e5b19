package commands

import (
	"fmt"
	"sort"
	"strings"
)

// Registry はコマンド名とエイリアスからコマンドを引くための表です。
type Registry struct {
	commands map[string]CommandHandler
	aliases  map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]CommandHandler),
		aliases:  make(map[string]string),
	}
}

// Register はコマンドを登録します。名前やエイリアスが重複する場合はエラーです。
func (r *Registry) Register(cmd CommandHandler) error {
	def := cmd.GetCommandDef()
	name := strings.ToLower(def.Name)
	if name == "" {
		return fmt.Errorf("command has no name")
	}
	if _, ok := r.commands[name]; ok {
		return fmt.Errorf("command %q is already registered", name)
	}
	for _, alias := range def.Aliases {
		alias = strings.ToLower(alias)
		if _, ok := r.aliases[alias]; ok {
			return fmt.Errorf("alias %q is already registered", alias)
		}
		if _, ok := r.commands[alias]; ok {
			return fmt.Errorf("alias %q collides with a command name", alias)
		}
	}

	r.commands[name] = cmd
	for _, alias := range def.Aliases {
		r.aliases[strings.ToLower(alias)] = name
	}
	return nil
}

// Lookup は名前、次にエイリアスの順でコマンドを探します。
func (r *Registry) Lookup(name string) (CommandHandler, bool) {
	name = strings.ToLower(name)
	if cmd, ok := r.commands[name]; ok {
		return cmd, true
	}
	if target, ok := r.aliases[name]; ok {
		cmd, ok := r.commands[target]
		return cmd, ok
	}
	return nil, false
}

// All は登録済みのコマンドを名前順に返します。
func (r *Registry) All() []CommandHandler {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	all := make([]CommandHandler, 0, len(names))
	for _, name := range names {
		all = append(all, r.commands[name])
	}
	return all
}
