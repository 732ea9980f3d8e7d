// yatademo is a local, in-process REPL driving several yata.Tracker
// replicas from one terminal. There is no network transport: sync happens
// by exporting one replica's log and integrating it into another, all
// within this process, matching how the facade is meant to be embedded.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mbrt/yatatree/textdiff"
	"github.com/mbrt/yatatree/yata"
)

var checkInvariants = flag.Bool("check", true, "run consistency checks after every command")

type replica struct {
	name string
	tr   *yata.Tracker
}

type session struct {
	byName map[string]*replica
}

func newSession() *session {
	return &session{byName: make(map[string]*replica)}
}

func (s *session) new(name string) (*replica, error) {
	if _, ok := s.byName[name]; ok {
		return nil, fmt.Errorf("replica %q already exists", name)
	}
	var opts []yata.TrackerOption
	if *checkInvariants {
		opts = append(opts, yata.WithConsistencyChecks(true))
	}
	r := &replica{name: name, tr: yata.NewTracker(randomClientID(), opts...)}
	s.byName[name] = r
	return r, nil
}

func (s *session) get(name string) (*replica, error) {
	r, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown replica %q", name)
	}
	return r, nil
}

// randomClientID folds a random UUID's low 8 bytes into a uint64, giving
// replicas client ids that won't collide across a demo session without
// requiring the operator to assign them by hand.
func randomClientID() uint64 {
	id := uuid.New()
	var v uint64
	for _, b := range id[8:] {
		v = v<<8 | uint64(b)
	}
	return v
}

func main() {
	flag.Parse()
	s := newSession()
	fmt.Println("yatademo: in-process multi-replica text CRDT REPL. Type 'help' for commands.")
	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			break
		}
		if err := s.dispatch(sc.Text()); err != nil {
			fmt.Println("error:", err)
		}
	}
}

func (s *session) dispatch(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "help":
		printHelp()
		return nil
	case "new":
		return s.cmdNew(args)
	case "ls":
		return s.cmdList(args)
	case "ins":
		return s.cmdInsert(args)
	case "del":
		return s.cmdDelete(args)
	case "sync":
		return s.cmdSync(args)
	case "diff":
		return s.cmdDiff(args)
	case "text":
		return s.cmdText(args)
	case "quit", "exit":
		os.Exit(0)
		return nil
	default:
		return fmt.Errorf("unknown command %q; try 'help'", cmd)
	}
}

func printHelp() {
	fmt.Println(`commands:
  new <name>                  create a fresh replica
  ls                          list replicas and their text
  ins <name> <pos> <text>     insert text at pos
  del <name> <pos> <len>      delete len chars starting at pos
  sync <from> <to>            export from's new ops and integrate into to
  diff <a> <b>                explain how a and b's text differ
  text <name>                 print a replica's materialized text
  quit                        exit`)
}

func (s *session) cmdNew(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: new <name>")
	}
	r, err := s.new(args[0])
	if err != nil {
		return err
	}
	log.Printf("%s: client_id=%d", r.name, r.tr.ClientID())
	return nil
}

func (s *session) cmdList(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: ls")
	}
	for name, r := range s.byName {
		fmt.Printf("%s: %q\n", name, r.tr.Text())
	}
	return nil
}

func (s *session) cmdInsert(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: ins <name> <pos> <text...>")
	}
	r, err := s.get(args[0])
	if err != nil {
		return err
	}
	pos, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid pos: %v", err)
	}
	text := strings.Join(args[2:], " ")
	if err := r.tr.Insert(pos, text); err != nil {
		return err
	}
	fmt.Printf("%s: %q\n", r.name, r.tr.Text())
	return nil
}

func (s *session) cmdDelete(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: del <name> <pos> <len>")
	}
	r, err := s.get(args[0])
	if err != nil {
		return err
	}
	pos, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid pos: %v", err)
	}
	length, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid len: %v", err)
	}
	if err := r.tr.Delete(pos, length); err != nil {
		return err
	}
	fmt.Printf("%s: %q\n", r.name, r.tr.Text())
	return nil
}

func (s *session) cmdSync(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: sync <from> <to>")
	}
	from, err := s.get(args[0])
	if err != nil {
		return err
	}
	to, err := s.get(args[1])
	if err != nil {
		return err
	}
	frame := from.tr.Export(to.tr.Version())
	if err := to.tr.Integrate(frame); err != nil {
		return err
	}
	fmt.Printf("%s: %q\n", to.name, to.tr.Text())
	return nil
}

func (s *session) cmdDiff(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: diff <a> <b>")
	}
	a, err := s.get(args[0])
	if err != nil {
		return err
	}
	b, err := s.get(args[1])
	if err != nil {
		return err
	}
	script, err := textdiff.Diff(a.tr.Text(), b.tr.Text())
	if err != nil {
		return err
	}
	fmt.Print(textdiff.Explain(script))
	return nil
}

func (s *session) cmdText(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: text <name>")
	}
	r, err := s.get(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%q\n", r.tr.Text())
	return nil
}
