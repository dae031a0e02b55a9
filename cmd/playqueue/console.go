package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/playqueue/internal/app/session"
	"github.com/osa030/playqueue/internal/domain/playlist"
	"github.com/osa030/playqueue/internal/domain/queue"
	"github.com/osa030/playqueue/internal/domain/track"
)

var (
	errUnknownCommand = errors.New("unknown command")
	errUsage          = errors.New("invalid arguments")
	errQuit           = errors.New("quit")
)

const helpText = `Commands:
  load <playlist-url>      Replace the queue with a playlist
  set <track...>           Replace the queue with tracks
  add <track...>           Append tracks to the main sequence
  next <track...>          Play tracks right after the current one
  user <track...>          Append tracks to the user queue
  move <from> <to>         Move an item
  rm <index>               Remove an item
  clear [keep]             Clear the queue (optionally keeping the current item)
  shuffle on|off           Toggle shuffle
  repeat none|all|one      Set repeat mode
  play | pause | skip | prev
  show                     Print the queue
  quit

A track is a track ID, optionally followed by @artist (e.g. 4uLU6h@Queen).
`

// console interprets line commands against a session.
type console struct {
	mgr *session.Manager
	out io.Writer
}

func newConsole(mgr *session.Manager, out io.Writer) *console {
	return &console{mgr: mgr, out: out}
}

// run reads commands from r until EOF, quit or ctx is done.
func (c *console) run(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.mgr.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			err := c.exec(ctx, line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(c.out, "error: %v\n", err)
			}
		}
	}
}

// exec executes a single command line.
func (c *console) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	eng := c.mgr.Engine()

	switch cmd {
	case "help", "?":
		fmt.Fprint(c.out, helpText)

	case "quit", "exit":
		return errQuit

	case "load":
		if len(args) != 1 {
			return errors.Wrap(errUsage, "load <playlist-url>")
		}
		pl, err := c.mgr.LoadPlaylist(ctx, args[0], false)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "loaded %s (%d tracks)\n", pl.Name, len(pl.Tracks))

	case "set", "add", "next", "user":
		if len(args) == 0 {
			return errors.Wrapf(errUsage, "%s <track...>", cmd)
		}
		tracks, err := c.tracks(ctx, args)
		if err != nil {
			return err
		}
		switch cmd {
		case "set":
			eng.SetQueue(tracks, 0, false, 0, nil)
		case "add":
			eng.AddToEnd(tracks, nil)
		case "next":
			eng.PlayNext(tracks, nil)
		case "user":
			eng.AddToUserQueue(tracks)
		}

	case "move":
		nums, err := ints(args, 2)
		if err != nil {
			return errors.Wrap(err, "move <from> <to>")
		}
		eng.Move(nums[0], nums[1])

	case "rm":
		nums, err := ints(args, 1)
		if err != nil {
			return errors.Wrap(err, "rm <index>")
		}
		eng.RemoveAt(nums[0])

	case "clear":
		keep := len(args) == 1 && args[0] == "keep"
		if len(args) > 1 || (len(args) == 1 && !keep) {
			return errors.Wrap(errUsage, "clear [keep]")
		}
		eng.ClearQueue(keep)

	case "shuffle":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return errors.Wrap(errUsage, "shuffle on|off")
		}
		eng.SetShuffle(args[0] == "on")

	case "repeat":
		if len(args) != 1 {
			return errors.Wrap(errUsage, "repeat none|all|one")
		}
		mode, err := queue.ParseRepeatMode(args[0])
		if err != nil {
			return err
		}
		eng.SetRepeat(mode)

	case "play":
		return c.mgr.Play()
	case "pause":
		return c.mgr.Pause()
	case "skip":
		return c.mgr.Skip()
	case "prev":
		return c.mgr.Previous()

	case "show":
		c.show()

	default:
		return errors.Wrapf(errUnknownCommand, "%q (try help)", cmd)
	}

	zlog.Debug().Msgf("console: executed: command=%s args=%v", cmd, args)
	return nil
}

// tracks resolves track tokens. Artist hints fill in metadata the resolver
// did not provide.
func (c *console) tracks(ctx context.Context, tokens []string) ([]track.Track, error) {
	ids := make([]string, len(tokens))
	artists := make(map[string]string, len(tokens))
	for i, tok := range tokens {
		id, artist, _ := strings.Cut(tok, "@")
		ids[i] = id
		if artist != "" {
			artists[id] = artist
		}
	}

	tracks, err := c.mgr.ResolveTracks(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range tracks {
		if a, ok := artists[tracks[i].ID]; ok && len(tracks[i].Artists) == 0 {
			tracks[i].Artists = []string{a}
		}
	}
	return tracks, nil
}

func (c *console) show() {
	items, st := c.mgr.Engine().View()

	if len(items) == 0 {
		fmt.Fprintln(c.out, "(empty)")
	}
	for i, it := range items {
		marker := " "
		if i == st.CurrentIndex {
			marker = ">"
		}
		fmt.Fprintf(c.out, "%s %3d  %-40s [%s]\n", marker, i, label(&it.Track), it.Segment)
	}

	if meta, err := playlist.MetadataOf(st.Context); err == nil {
		fmt.Fprintf(c.out, "playlist: %s (%d tracks) %s\n", st.Context.Name, meta.TrackCount, meta.URL)
	}
	fmt.Fprintf(c.out, "items=%d play_next=%d shuffle=%s repeat=%s playback=%s\n",
		st.TotalCount, st.PlayNextCount, lo.Ternary(st.Shuffle, "on", "off"), st.Repeat, c.mgr.Timeline().State())
}

// watch prints the now-playing item whenever it changes, until the hub
// closes the subscription or ctx is done.
func (c *console) watch(ctx context.Context) {
	hub := c.mgr.Hub()
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub.ID())
	zlog.Debug().Msgf("console: watching queue: subscribers=%d", hub.SubscriberCount())

	var playing string
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-sub.Updates():
			if !ok {
				return
			}
			if u.Current == nil || u.Current.UID == playing {
				continue
			}
			playing = u.Current.UID
			fmt.Fprintf(c.out, "now playing: %s\n", label(&u.Current.Track))
		}
	}
}

func label(t *track.Track) string {
	s := t.Name
	if s == "" {
		s = t.ID
	}
	if artist := t.PrimaryArtist(); artist != "" {
		s += " - " + artist
	}
	return s
}

func ints(args []string, n int) ([]int, error) {
	if len(args) != n {
		return nil, errUsage
	}
	out := make([]int, n)
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, errors.Wrapf(errUsage, "not a number: %s", a)
		}
		out[i] = v
	}
	return out, nil
}
