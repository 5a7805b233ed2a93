// Package confcli exposes the config store operations as CLI
// subcommands for scripts and operators.
package confcli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/vigilohq/agent/internal/confstore"
)

// Dependencies allow test overrides for output and the store's logger.
type Dependencies struct {
	Out    io.Writer
	Logger confstore.Logger
}

// Run dispatches one conf subcommand.
func Run(ctx context.Context, args []string, deps Dependencies) error {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if len(args) < 1 {
		return fmt.Errorf("conf requires a subcommand (create|validate|get|set|unset|exists|find|add-record|remove-record|set-field|count)")
	}

	op := args[0]
	rest := args[1:]

	switch op {
	case "create":
		return runCreate(ctx, rest, deps)
	case "validate":
		return runValidate(ctx, rest, deps)
	case "get":
		return runGet(ctx, rest, deps)
	case "set":
		return runSet(ctx, rest, deps)
	case "unset":
		return runUnset(ctx, rest, deps)
	case "exists":
		return runExists(ctx, rest, deps)
	case "find":
		return runFind(ctx, rest, deps)
	case "add-record":
		return runAddRecord(ctx, rest, deps)
	case "remove-record":
		return runRemoveRecord(ctx, rest, deps)
	case "set-field":
		return runSetField(ctx, rest, deps)
	case "count":
		return runCount(ctx, rest, deps)
	default:
		return fmt.Errorf("unknown conf subcommand %q", op)
	}
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet("conf "+name, flag.ContinueOnError)
	file := fs.String("file", "", "Path to the configuration document")
	return fs, file
}

func openStore(file string, deps Dependencies) (*confstore.Store, error) {
	if file == "" {
		return nil, fmt.Errorf("--file is required")
	}
	return confstore.New(file, confstore.Dependencies{Logger: deps.Logger}), nil
}

func runCreate(ctx context.Context, args []string, deps Dependencies) error {
	fs, file := newFlagSet("create")
	force := fs.Bool("force", false, "Overwrite an existing document")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := openStore(*file, deps)
	if err != nil {
		return err
	}
	if err := s.Create(ctx, *force); err != nil {
		return err
	}
	fmt.Fprintf(deps.Out, "created %s\n", *file)
	return nil
}

func runValidate(ctx context.Context, args []string, deps Dependencies) error {
	fs, file := newFlagSet("validate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := openStore(*file, deps)
	if err != nil {
		return err
	}
	validity := s.Validate(ctx)
	fmt.Fprintf(deps.Out, "%s\n", validity)
	if validity != confstore.ValidityValid {
		return fmt.Errorf("document %s is %s", *file, validity)
	}
	return nil
}

func runGet(ctx context.Context, args []string, deps Dependencies) error {
	fs, file := newFlagSet("get")
	path := fs.String("path", "", "Field path to read")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := openStore(*file, deps)
	if err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("--path is required")
	}
	val, err := s.ReadValue(ctx, *path)
	if err != nil {
		return err
	}
	fmt.Fprintf(deps.Out, "%s\n", val.Text())
	return nil
}

func runSet(ctx context.Context, args []string, deps Dependencies) error {
	fs, file := newFlagSet("set")
	path := fs.String("path", "", "Field path to write")
	value := fs.String("value", "", "Value to set")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := openStore(*file, deps)
	if err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("--path is required")
	}
	if err := s.WriteValue(ctx, *path, *value); err != nil {
		return err
	}
	fmt.Fprintf(deps.Out, "set %s\n", *path)
	return nil
}

func runUnset(ctx context.Context, args []string, deps Dependencies) error {
	fs, file := newFlagSet("unset")
	path := fs.String("path", "", "Field path to remove")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := openStore(*file, deps)
	if err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("--path is required")
	}
	if err := s.DeleteKey(ctx, *path); err != nil {
		return err
	}
	fmt.Fprintf(deps.Out, "removed %s\n", *path)
	return nil
}

func runExists(ctx context.Context, args []string, deps Dependencies) error {
	fs, file := newFlagSet("exists")
	path := fs.String("path", "", "Field path to probe")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := openStore(*file, deps)
	if err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("--path is required")
	}
	exists, err := s.KeyExists(ctx, *path)
	if err != nil {
		return err
	}
	fmt.Fprintf(deps.Out, "%t\n", exists)
	return nil
}

func runFind(ctx context.Context, args []string, deps Dependencies) error {
	fs, file := newFlagSet("find")
	collection := fs.String("collection", "monitor_data", "Record collection to search")
	key := fs.String("key", "", "Record key to match")
	value := fs.String("value", "", "Value to match (case-insensitive)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := openStore(*file, deps)
	if err != nil {
		return err
	}
	if *key == "" {
		return fmt.Errorf("--key is required")
	}
	rec, err := s.FindRecord(ctx, *collection, *key, *value)
	if err != nil {
		return err
	}
	fmt.Fprintf(deps.Out, "%s\n", rec.Text())
	return nil
}

func runAddRecord(ctx context.Context, args []string, deps Dependencies) error {
	fs, file := newFlagSet("add-record")
	collection := fs.String("collection", "monitor_data", "Record collection to insert into")
	record := fs.String("record", "", "Record as a JSON object")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := openStore(*file, deps)
	if err != nil {
		return err
	}
	if *record == "" {
		return fmt.Errorf("--record is required")
	}
	rec, err := confstore.ParseRecord(*record)
	if err != nil {
		return err
	}
	if err := s.AddRecord(ctx, *collection, rec); err != nil {
		return err
	}
	fmt.Fprintf(deps.Out, "added record to %s\n", *collection)
	return nil
}

func runRemoveRecord(ctx context.Context, args []string, deps Dependencies) error {
	fs, file := newFlagSet("remove-record")
	collection := fs.String("collection", "monitor_data", "Record collection to remove from")
	key := fs.String("key", "", "Record key to match")
	value := fs.String("value", "", "Value to match (case-insensitive)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := openStore(*file, deps)
	if err != nil {
		return err
	}
	if *key == "" {
		return fmt.Errorf("--key is required")
	}
	if err := s.DeleteRecord(ctx, *collection, *key, *value); err != nil {
		return err
	}
	fmt.Fprintf(deps.Out, "removed record(s) from %s\n", *collection)
	return nil
}

func runSetField(ctx context.Context, args []string, deps Dependencies) error {
	fs, file := newFlagSet("set-field")
	collection := fs.String("collection", "monitor_data", "Record collection to update")
	searchKey := fs.String("search-key", "", "Record key to match")
	searchValue := fs.String("search-value", "", "Value to match (exact case)")
	key := fs.String("key", "", "Field to set on matching records")
	value := fs.String("value", "", "Value to set")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := openStore(*file, deps)
	if err != nil {
		return err
	}
	if *searchKey == "" || *key == "" {
		return fmt.Errorf("--search-key and --key are required")
	}
	if err := s.UpdateRecordField(ctx, *collection, *searchKey, *searchValue, *key, *value); err != nil {
		return err
	}
	fmt.Fprintf(deps.Out, "updated %s\n", *collection)
	return nil
}

func runCount(ctx context.Context, args []string, deps Dependencies) error {
	fs, file := newFlagSet("count")
	collection := fs.String("collection", "monitor_data", "Record collection to count")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := openStore(*file, deps)
	if err != nil {
		return err
	}
	n, err := s.CountRecords(ctx, *collection)
	if err != nil {
		return err
	}
	fmt.Fprintf(deps.Out, "%d\n", n)
	return nil
}
