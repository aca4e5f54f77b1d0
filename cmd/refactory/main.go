package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ergochat/readline"
	"github.com/mangr3n/refactory"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),

	readline.PcItem("put"),
	readline.PcItem("get"),
	readline.PcItem("rm"),
	readline.PcItem("erase"),
	readline.PcItem("show"),

	readline.PcItem("save"),
	readline.PcItem("merge"),

	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

const help = `
put <entity> <attr> <json-value>   record a fact
get <entity> <attr>                read a fact
rm <entity> <attr>                 tombstone a fact
erase <entity> <attr>              remove a fact and prune its path
show [entity]                      dump the current state
save <file>                        write the container exchange form
merge <file>                       merge an exchanged container
exit                               bye
`

func show(store *refactory.Store, entities ...string) {
	root := store.Head().Root
	if len(entities) == 0 {
		entities = root.Keys()
	}
	for _, entity := range entities {
		en := root.Child(entity)
		if en == nil {
			_, _ = fmt.Fprintf(os.Stderr, "no such entity: %s\n", entity)
			continue
		}
		for _, attr := range en.Keys() {
			v, ok := en.Child(attr).Value()
			if !ok {
				fmt.Printf("%s\t%s\t(tombstone)\n", entity, attr)
				continue
			}
			js, _ := json.Marshal(v)
			fmt.Printf("%s\t%s\t%s\n", entity, attr, js)
		}
	}
}

func mergeFile(store *refactory.Store, name string) error {
	data, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	if err = store.MergeBytes(data); err != nil {
		return err
	}
	head := store.Head()
	fmt.Printf("merged, version %v\n", head.Ver)
	return nil
}

func main() {
	dir := "refactory-data"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	store, err := refactory.Open(dir, refactory.Options{})
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-1)
	}

	l, err := readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     ".refactory_cmd_log.txt",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	fmt.Printf("replica %s at %s\n", store.Src(), dir)

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		args := strings.Split(line, " ")
		cmd := args[0]
		args = args[1:]
		err = nil
		switch cmd {
		case "help":
			fmt.Print(help)
		case "put":
			if len(args) < 3 {
				err = fmt.Errorf("usage: put <entity> <attr> <json-value>")
				break
			}
			var v any
			if err = json.Unmarshal([]byte(strings.Join(args[2:], " ")), &v); err != nil {
				break
			}
			err = store.Put(args[0], args[1], v)
		case "get":
			if len(args) != 2 {
				err = fmt.Errorf("usage: get <entity> <attr>")
				break
			}
			v, ok := store.Get(args[0], args[1])
			if !ok {
				_, _ = fmt.Fprintln(os.Stderr, "no value")
				break
			}
			js, _ := json.Marshal(v)
			fmt.Println(string(js))
		case "rm":
			if len(args) != 2 {
				err = fmt.Errorf("usage: rm <entity> <attr>")
				break
			}
			err = store.Remove(args[0], args[1])
		case "erase":
			if len(args) != 2 {
				err = fmt.Errorf("usage: erase <entity> <attr>")
				break
			}
			err = store.Erase(args[0], args[1])
		case "show", "list":
			show(store, args...)
		case "save":
			if len(args) != 1 {
				err = fmt.Errorf("usage: save <file>")
				break
			}
			err = os.WriteFile(args[0], store.Snapshot(), 0644)
		case "merge":
			if len(args) != 1 {
				err = fmt.Errorf("usage: merge <file>")
				break
			}
			err = mergeFile(store, args[0])
		case "exit", "quit":
			ex := 0
			if err = store.Close(); err != nil {
				_, _ = fmt.Fprintln(os.Stderr, err.Error())
				ex = -1
			}
			os.Exit(ex)
		default:
			_, _ = fmt.Fprintf(os.Stderr, "command unknown: %s\n", cmd)
		}

		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error executing %s: %s\n", cmd, err.Error())
		}
	}
	_ = store.Close()
}
