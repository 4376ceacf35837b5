package cmds

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"procmem/hexdump"
	"procmem/metadata"
	"procmem/patterns"
	"procmem/process"
	"procmem/process/memory_map"
	"procmem/process_blob"
	"procmem/process_finder"
	"procmem/reader"
	"procmem/search"
	"procmem/signature"
	"procmem/table"
)

var (
	fromDir   string
	colorMode string

	rootCommand *cobra.Command
)

const procmemLongDesc = `procmem inspects the memory of a running 32-bit process.

Every command takes the id of the target process. With --from, the process is
replayed from a directory written by 'procmem dump' instead of the live system.`

// openOS is replaced in tests
var openOS = func() (process.OS, error) {
	if fromDir == "" {
		return nativeOS(), nil
	}
	s, _, err := process_blob.Load(fromDir)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// New returns the root command with every subcommand registered
func New() *cobra.Command {
	rootCommand = &cobra.Command{
		Use:          "procmem",
		Short:        "Read and scan the memory of another process.",
		Long:         procmemLongDesc,
		SilenceUsage: true,
	}

	rootCommand.PersistentFlags().StringVar(&fromDir, "from", "", "Replay a process dump directory instead of the live system.")
	rootCommand.PersistentFlags().StringVar(&colorMode, "color", "auto", "Colour output: auto, always or never.")

	rootCommand.AddCommand(
		existsCommand(),
		findCommand(),
		lookupCommand(),
		regionsCommand(),
		scanCommand(),
		readCommand(),
		pointerCommand(),
		stringCommand(),
		pathCommand(),
		cmdlineCommand(),
		paramsCommand(),
		resolveCommand(),
		chainCommand(),
		dumpCommand(),
	)

	return rootCommand
}

// withReader opens a session on the pid in args[0] for the duration of fn
func withReader(args []string, fn func(o process.OS, r *reader.Reader) error) error {
	pid, err := parsePID(args[0])
	if err != nil {
		return err
	}
	o, err := openOS()
	if err != nil {
		return err
	}
	r, err := reader.New(o, pid)
	if err != nil {
		return err
	}
	defer r.Close()
	return fn(o, r)
}

// withPID resolves args[0] and the OS for commands that do not need a session
func withPID(args []string, fn func(o process.OS, pid process.ProcessID) error) error {
	pid, err := parsePID(args[0])
	if err != nil {
		return err
	}
	o, err := openOS()
	if err != nil {
		return err
	}
	return fn(o, pid)
}

func existsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <pid>",
		Short: "Report whether a process is running.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPID(args, func(o process.OS, pid process.ProcessID) error {
				fmt.Fprintln(cmd.OutOrStdout(), process.ProcessExists(o, pid))
				return nil
			})
		},
	}
}

func findCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "find <prefix>",
		Short: "List processes whose image name starts with prefix (case sensitive).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := openOS()
			if err != nil {
				return err
			}
			entries, err := process.FindProcessEntries(o, args[0])
			if err != nil {
				return err
			}

			t := table.New(table.Column{Header: "PID", Right: true}, table.Column{Header: "Name"})
			for _, e := range entries {
				t.AddRow(strconv.FormatUint(uint64(e.PID), 10), e.Name)
			}
			return render(cmd, t)
		},
	}
}

func lookupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <name>",
		Short: "List live processes whose executable name contains name, with their command lines.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matches, err := process_finder.All(nativeOS(), args[0])
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				return fmt.Errorf("no process found with name %q", args[0])
			}

			t := table.New(table.Column{Header: "PID", Right: true}, table.Column{Header: "Name"}, table.Column{Header: "Command line"})
			for _, m := range matches {
				t.AddRow(strconv.FormatUint(uint64(m.PID), 10), m.Name, m.CommandLine)
			}
			return render(cmd, t)
		},
	}
}

func regionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "regions <pid>",
		Short: "List the committed and reserved memory regions of a process.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPID(args, func(o process.OS, pid process.ProcessID) error {
				regions, err := process.EnumerateRegions(o, pid)
				if err != nil {
					return err
				}

				t := table.New(
					table.Column{Header: "Start", Right: true},
					table.Column{Header: "End", Right: true},
					table.Column{Header: "State", Format: stateColor},
					table.Column{Header: "Perms"},
					table.Column{Header: "Size", Right: true},
				)
				for _, r := range regions {
					t.AddRow(
						fmt.Sprintf("0x%08x", r.Address),
						fmt.Sprintf("0x%08x", r.End()),
						r.State.String(),
						r.Perms,
						humanize.IBytes(r.Size),
					)
				}
				if err := render(cmd, t); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d regions, %s\n", len(regions), humanize.IBytes(memory_map.TotalSize(regions)))
				return nil
			})
		},
	}
}

func scanCommand() *cobra.Command {
	var context int

	cmd := &cobra.Command{
		Use:   "scan <pid> <signature>...",
		Short: "Find the first match of a byte signature such as \"8B 45 ?? 89\".",
		Long: `Find the first match of a byte signature.

Tokens are two hex digits or ?? for any byte. A 00 token also matches any byte.
The tokens may be passed as one quoted argument or as separate arguments.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			sig, err := signature.Parse(text)
			if err != nil {
				return err
			}

			return withReader(args, func(_ process.OS, r *reader.Reader) error {
				addr, err := r.FindSignature(text)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), addr)

				if context <= 0 {
					return nil
				}
				data, err := r.ReadRaw(addr, sig.Len()+context)
				if err != nil {
					return err
				}
				return printDump(cmd, r, data, addr, &sig)
			})
		},
	}

	cmd.Flags().IntVarP(&context, "context", "C", 32, "Bytes to dump after the match, 0 to print the address only.")
	return cmd
}

func readCommand() *cobra.Command {
	var (
		kind string
		size int
	)

	cmd := &cobra.Command{
		Use:   "read <pid>",
		Short: "Read a typed value, or raw bytes with --raw.",
		Args:  cobra.ExactArgs(1),
	}
	addr := addressFlag(cmd.Flags(), "addr", "Address to read.")
	cmd.Flags().StringVarP(&kind, "type", "t", "i32", "Value type: i8 i16 i32 i64 u8 u16 u32 u64 f32 f64.")
	cmd.Flags().IntVar(&size, "raw", 0, "Read this many raw bytes and hex dump them.")
	cmd.MarkFlagRequired("addr")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withReader(args, func(_ process.OS, r *reader.Reader) error {
			if size > 0 {
				data, err := r.ReadRaw(*addr, size)
				if err != nil {
					return err
				}
				return printDump(cmd, r, data, *addr, nil)
			}

			k, err := reader.KindByName(kind)
			if err != nil {
				return err
			}
			v, err := r.ReadValue(k, *addr)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		})
	}
	return cmd
}

func pointerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pointer <pid>",
		Short: "Follow the pointer at an address twice and print the value reached.",
		Args:  cobra.ExactArgs(1),
	}
	addr := addressFlag(cmd.Flags(), "addr", "Address of the first pointer.")
	cmd.MarkFlagRequired("addr")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withReader(args, func(_ process.OS, r *reader.Reader) error {
			p, err := r.ReadPointer(*addr)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		})
	}
	return cmd
}

func stringCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "string <pid>",
		Short: "Read a length-prefixed UTF-16 string object.",
		Args:  cobra.ExactArgs(1),
	}
	addr := addressFlag(cmd.Flags(), "addr", "Address of the string object.")
	cmd.MarkFlagRequired("addr")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withReader(args, func(_ process.OS, r *reader.Reader) error {
			s, err := r.ReadString(*addr)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		})
	}
	return cmd
}

func pathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path <pid>",
		Short: "Print the path of the main executable of a process.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPID(args, func(o process.OS, pid process.ProcessID) error {
				path, err := metadata.ProcessPath(o, pid)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
}

func cmdlineCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cmdline <pid>",
		Short: "Print the command line a process was started with.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPID(args, func(o process.OS, pid process.ProcessID) error {
				cmdline, err := metadata.CommandLine(o, pid)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cmdline)
				return nil
			})
		},
	}
}

func paramsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "params <pid>",
		Short: "Print the image path, command line and working directory from the process parameters.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPID(args, func(o process.OS, pid process.ProcessID) error {
				params, err := metadata.Parameters(o, pid)
				if err != nil {
					return err
				}

				t := table.New(table.Column{Header: "Field"}, table.Column{Header: "Value"})
				t.AddRow("image", params.ImagePathName)
				t.AddRow("cmdline", params.CommandLine)
				t.AddRow("cwd", params.CurrentDirectory)
				return render(cmd, t)
			})
		},
	}
}

func resolveCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "resolve <pid>",
		Short: "Resolve a named pattern set against a process.",
		Long: `Resolve a named pattern set against a process.

Without --patterns the built-in osu! stable set is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set := patterns.OsuStable()
			if file != "" {
				var err error
				if set, err = patterns.Load(file); err != nil {
					return err
				}
			}

			return withReader(args, func(_ process.OS, r *reader.Reader) error {
				resolved, resolveErr := set.Resolve(r)

				names := make([]string, 0, len(resolved))
				for name := range resolved {
					names = append(names, name)
				}
				sort.Strings(names)

				t := table.New(table.Column{Header: "Name"}, table.Column{Header: "Address", Right: true})
				for _, name := range names {
					t.AddRow(name, resolved[name].String())
				}
				if err := render(cmd, t); err != nil {
					return err
				}
				return resolveErr
			})
		},
	}

	cmd.Flags().StringVarP(&file, "patterns", "p", "", "YAML pattern set to resolve.")
	return cmd
}

func chainCommand() *cobra.Command {
	var (
		kind    string
		value   string
		depth   int
		maxSize int
	)

	cmd := &cobra.Command{
		Use:   "chain <pid>",
		Short: "Search for pointer paths from a base address to a value.",
		Args:  cobra.ExactArgs(1),
	}
	base := addressFlag(cmd.Flags(), "base", "Address of the root structure.")
	cmd.Flags().StringVarP(&kind, "type", "t", "i32", "Type of the value searched for.")
	cmd.Flags().StringVar(&value, "value", "", "Value searched for.")
	cmd.Flags().IntVar(&depth, "depth", 3, "Maximum number of pointers followed.")
	cmd.Flags().IntVar(&maxSize, "struct-size", 256, "Bytes scanned at each level.")
	cmd.MarkFlagRequired("base")
	cmd.MarkFlagRequired("value")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		target, err := valueOption(kind, value)
		if err != nil {
			return err
		}

		return withReader(args, func(_ process.OS, r *reader.Reader) error {
			results, err := search.Search(r, *base, target, search.WithMaxDepth(depth), search.WithMaxStructSize(maxSize))
			if err != nil {
				return err
			}
			for _, res := range results {
				fmt.Fprintln(cmd.OutOrStdout(), res)
			}
			if len(results) == 0 {
				return errors.New("no path found")
			}
			return nil
		})
	}
	return cmd
}

func valueOption(kind, value string) (search.Option, error) {
	k, err := reader.KindByName(kind)
	if err != nil {
		return nil, err
	}

	switch {
	case k.Float:
		f, err := strconv.ParseFloat(value, k.Size*8)
		if err != nil {
			return nil, err
		}
		if k.Size == 4 {
			return search.WithValue(float32(f)), nil
		}
		return search.WithValue(f), nil
	case k.Signed:
		v, err := strconv.ParseInt(value, 0, k.Size*8)
		if err != nil {
			return nil, err
		}
		switch k.Size {
		case 1:
			return search.WithValue(int8(v)), nil
		case 2:
			return search.WithValue(int16(v)), nil
		case 4:
			return search.WithValue(int32(v)), nil
		}
		return search.WithValue(v), nil
	default:
		v, err := strconv.ParseUint(value, 0, k.Size*8)
		if err != nil {
			return nil, err
		}
		switch k.Size {
		case 1:
			return search.WithValue(uint8(v)), nil
		case 2:
			return search.WithValue(uint16(v)), nil
		case 4:
			return search.WithValue(uint32(v)), nil
		}
		return search.WithValue(v), nil
	}
}

func dumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <pid> <dir>",
		Short: "Save the regions and metadata of a process for replay with --from.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReader(args, func(o process.OS, r *reader.Reader) error {
				m := manifest(o, r.PID())

				stats, err := process_blob.Save(args[1], m, r)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "saved %d regions (%s), %d skipped, %d unreadable\n",
					stats.Saved, humanize.IBytes(memory_map.TotalSize(r.Regions())), stats.Skipped, stats.ReadError)
				return nil
			})
		},
	}
}

// manifest collects the process details a replay needs. Missing details are left empty.
func manifest(o process.OS, pid process.ProcessID) process_blob.Manifest {
	m := process_blob.Manifest{PID: pid}

	if entries, err := process.FindProcessEntries(o, ""); err == nil {
		for _, e := range entries {
			if e.PID == pid {
				m.Name = e.Name
			}
		}
	}

	if path, err := metadata.ProcessPath(o, pid); err == nil {
		m.ModulePath = path
	}

	if h, err := o.OpenProcess(pid); err == nil {
		if info, err := o.BasicInformation(h); err == nil {
			m.PebBaseAddress = info.PebBaseAddress
			m.PointerSize = info.PointerSize
		}
		process.Release(o, h)
	}

	return m
}

func printDump(cmd *cobra.Command, r *reader.Reader, data []byte, addr process.Address, sig *signature.Signature) error {
	w, color := output(cmd)
	if color {
		_, err := fmt.Fprint(w, hexdump.Region(data, addr.Uint64(), r.Regions(), sig))
		return err
	}
	_, err := fmt.Fprint(w, hexdump.Plain(data, addr.Uint64()))
	return err
}

func stateColor(s string) string {
	if s == memory_map.StateCommit.String() {
		return s
	}
	return coloransi.Foreground(coloransi.BrightBlack, s)
}
