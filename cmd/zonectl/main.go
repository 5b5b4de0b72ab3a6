// Command zonectl is a small interactive console over a running Engine, in
// the same shape as the teacher's admin console: a prompt loop dispatching
// whitespace-separated commands to handler functions, printing errors
// rather than exiting on a bad command.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/zoneward/zoneward"
	"github.com/zoneward/zoneward/track"
)

func main() {
	c := newConsole()
	fmt.Println("zonectl - spatial containment engine console. Type 'help' for commands.")
	prompt.New(c.execute, c.complete, prompt.OptionPrefix("zonectl> ")).Run()
}

type console struct {
	eng     *zoneward.Engine
	zones   map[string]zoneward.ZoneID
	groups  map[string]*trackedGroup
	nextTag int
}

type trackedGroup struct {
	group   *track.Group
	entityN int
}

func newConsole() *console {
	return &console{
		eng:    zoneward.New(zoneward.Config{}),
		zones:  make(map[string]zoneward.ZoneID),
		groups: make(map[string]*trackedGroup),
	}
}

var commands = []string{"help", "zone", "group", "entity", "tick", "query", "budget", "exit"}

func (c *console) complete(d prompt.Document) []prompt.Suggest {
	if d.TextBeforeCursor() == "" || strings.Count(d.TextBeforeCursor(), " ") > 0 {
		return nil
	}
	suggestions := make([]prompt.Suggest, 0, len(commands))
	for _, cmd := range commands {
		suggestions = append(suggestions, prompt.Suggest{Text: cmd})
	}
	return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
}

func (c *console) execute(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	var err error
	switch fields[0] {
	case "help":
		c.help()
	case "zone":
		err = c.cmdZone(fields[1:])
	case "group":
		err = c.cmdGroup(fields[1:])
	case "entity":
		err = c.cmdEntity(fields[1:])
	case "tick":
		c.cmdTick()
	case "query":
		err = c.cmdQuery(fields[1:])
	case "budget":
		err = c.cmdBudget(fields[1:])
	case "exit", "quit":
		os.Exit(0)
	default:
		err = fmt.Errorf("unknown command %q; try 'help'", fields[0])
	}
	if err != nil {
		fmt.Println("error:", err)
	}
}

func (c *console) help() {
	fmt.Println(`commands:
  zone block <sx> <sy> <sz> [dynamic] <name>   create a Block zone, centered at the origin
  zone ball <radius> [dynamic] <name>          create a Ball zone, centered at the origin
  zone destroy <name>                          destroy a zone
  group new [updateRateHz] <name>              create a group
  entity add <group> <x> <y> <z>               add a stationary entity to a group
  tick                                          advance the engine one tick
  query <x> <y> <z>                             list zones containing a point
  budget <milliseconds>                         set the frame budget
  exit                                           quit`)
}

func (c *console) cmdZone(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: zone <block|ball|destroy> ...")
	}
	switch args[0] {
	case "destroy":
		if len(args) != 2 {
			return fmt.Errorf("usage: zone destroy <name>")
		}
		id, ok := c.zones[args[1]]
		if !ok {
			return fmt.Errorf("no such zone %q", args[1])
		}
		if err := c.eng.DestroyZone(id); err != nil {
			return err
		}
		delete(c.zones, args[1])
		return nil
	case "block":
		if len(args) < 5 {
			return fmt.Errorf("usage: zone block <sx> <sy> <sz> [dynamic] <name>")
		}
		ex, err := parseVec3(args[1:4])
		if err != nil {
			return err
		}
		dynamic, name, err := parseDynamicAndName(args[4:])
		if err != nil {
			return err
		}
		z, err := c.eng.NewZone(zoneward.ZoneParams{Shape: zoneward.Block, Transform: identityTransform(), Extents: ex, Dynamic: dynamic})
		if err != nil {
			return err
		}
		c.zones[name] = z.ID
		fmt.Println("created zone", name, "id", z.ID)
		return nil
	case "ball":
		if len(args) < 2 {
			return fmt.Errorf("usage: zone ball <radius> [dynamic] <name>")
		}
		r, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return err
		}
		dynamic, name, err := parseDynamicAndName(args[2:])
		if err != nil {
			return err
		}
		diam := 2 * r
		z, err := c.eng.NewZone(zoneward.ZoneParams{Shape: zoneward.Ball, Transform: identityTransform(), Extents: mgl64.Vec3{diam, diam, diam}, Dynamic: dynamic})
		if err != nil {
			return err
		}
		c.zones[name] = z.ID
		fmt.Println("created zone", name, "id", z.ID)
		return nil
	default:
		return fmt.Errorf("unknown zone subcommand %q", args[0])
	}
}

func (c *console) cmdGroup(args []string) error {
	if len(args) < 2 || args[0] != "new" {
		return fmt.Errorf("usage: group new [updateRateHz] <name>")
	}
	rest := args[1:]
	rate := 0.0
	if len(rest) == 2 {
		r, err := strconv.ParseFloat(rest[0], 64)
		if err != nil {
			return err
		}
		rate = r
		rest = rest[1:]
	}
	if len(rest) != 1 {
		return fmt.Errorf("usage: group new [updateRateHz] <name>")
	}
	g := c.eng.NewGroup(zoneward.GroupParams{UpdateRate: rate})
	c.groups[rest[0]] = &trackedGroup{group: g}
	fmt.Println("created group", rest[0], "id", g.ID())
	return nil
}

func (c *console) cmdEntity(args []string) error {
	if len(args) != 5 || args[0] != "add" {
		return fmt.Errorf("usage: entity add <group> <x> <y> <z>")
	}
	tg, ok := c.groups[args[1]]
	if !ok {
		return fmt.Errorf("no such group %q", args[1])
	}
	pos, err := parseVec3(args[2:5])
	if err != nil {
		return err
	}
	id := c.eng.AddEntity(tg.group, uuid.New(), func() mgl64.Vec3 { return pos }, nil)
	tg.entityN++
	fmt.Println("added entity", id, "to group", args[1])
	return nil
}

func (c *console) cmdTick() {
	res := c.eng.Tick()
	fmt.Printf("tick: processed=%d staticRebuilt=%v dynamicRebuilt=%v skipped=%v elapsed=%s\n",
		res.Processed, res.StaticRebuilt, res.DynamicRebuilt, res.Skipped, res.Elapsed)
}

func (c *console) cmdQuery(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: query <x> <y> <z>")
	}
	p, err := parseVec3(args)
	if err != nil {
		return err
	}
	hits := c.eng.GetZonesAtPoint(p)
	fmt.Println("zones:", hits)
	return nil
}

func (c *console) cmdBudget(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: budget <milliseconds>")
	}
	ms, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return err
	}
	c.eng.SetFrameBudget(time.Duration(ms * float64(time.Millisecond)))
	return nil
}

func parseVec3(args []string) (mgl64.Vec3, error) {
	if len(args) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("expected 3 coordinates")
	}
	var v mgl64.Vec3
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return mgl64.Vec3{}, fmt.Errorf("invalid coordinate %q: %w", a, err)
		}
		v[i] = f
	}
	return v, nil
}

func parseDynamicAndName(args []string) (dynamic bool, name string, err error) {
	switch len(args) {
	case 1:
		return false, args[0], nil
	case 2:
		if args[0] != "dynamic" {
			return false, "", fmt.Errorf("expected 'dynamic' or a name, got %q", args[0])
		}
		return true, args[1], nil
	default:
		return false, "", fmt.Errorf("expected [dynamic] <name>")
	}
}

func identityTransform() zoneward.Transform {
	return zoneward.Transform{Basis: mgl64.Ident3()}
}
