package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/workspace-backup-app/backupstore/dal"
	"github.com/jamesrr39/workspace-backup-app/backupstore/domain"
	"github.com/jamesrr39/workspace-backup-app/backupstore/excludesmatcher"
	"github.com/pkg/errors"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

var ErrVerificationFailed = errors.New("backup verification failed: the hash does not match")

var (
	logger            *logpkg.Logger
	app               *kingpin.Application
	out               io.Writer
	workspaceLocation *string
	verbose           *bool
)

func main() {
	setupApp(os.Stdout, os.Stderr)

	kingpin.MustParse(app.Parse(os.Args[1:]))
}

func setupApp(stdout, stderr io.Writer) {
	out = stdout
	app = kingpin.New("workspace-backup", "archive a workspace into compressed, timestamped snapshots")
	app.ErrorWriter(stderr)
	workspaceLocation = app.Flag("workspace", "location of the workspace to back up").Short('C').Envar("WORKSPACE_BACKUP_DIR").Default(".").String()
	verbose = app.Flag("verbose", "log every file as it is added to a snapshot").Short('v').Bool()
	app.PreAction(func(ctx *kingpin.ParseContext) error {
		logLevel := logpkg.LogLevelInfo
		if *verbose {
			logLevel = logpkg.LogLevelDebug
		}
		logger = logpkg.NewLogger(stderr, logLevel)
		return nil
	})

	setupCreateCommand()
	setupListCommand()
	setupDeleteCommand()
	setupExtractCommand()
	setupVerifyCommand()
	setupGetHashCommand()
	setupExcludeCommand()
	setupListExcludesCommand()
}

func openStore() (*dal.StoreDAL, error) {
	return dal.NewStoreDAL(*workspaceLocation, logger)
}

func addIndexFlag(cmd *kingpin.CmdClause) *int {
	return cmd.Flag("index", "which of the snapshots with this name to use, oldest first, starting at 0. Required when more than one snapshot has the name").Short('i').Default(fmt.Sprint(dal.NoIndex)).Int()
}

func setupCreateCommand() {
	cmd := app.Command("create", "create a snapshot of the workspace")
	name := cmd.Arg("name", "name of the snapshot").Required().String()
	excludeFromLocation := cmd.Flag("exclude-from", "path to a file with extra exclusion patterns for this snapshot only, one per line").String()
	cmd.Action(func(ctx *kingpin.ParseContext) error {
		store, err := openStore()
		if nil != err {
			return err
		}

		matcher, err := store.ExcludesDAL.Load()
		if nil != err {
			return err
		}

		if *excludeFromLocation != "" {
			excludeFile, err := os.Open(*excludeFromLocation)
			if nil != err {
				return err
			}
			defer excludeFile.Close()

			err = matcher.AddRulesFromReader(excludeFile)
			if nil != err {
				return errors.Wrapf(err, "couldn't read exclusion patterns from %q", *excludeFromLocation)
			}
		}

		snapshot, err := store.SnapshotDAL.Create(*name, matcher)
		if nil != err {
			return err
		}

		fmt.Fprintf(out, "Backup created: %s\n", filepath.Join(store.SnapshotsDirPath(), snapshot.FileName()))
		return nil
	})
}

func setupListCommand() {
	cmd := app.Command("list", "list the snapshots of the workspace, oldest first")
	namePattern := cmd.Arg("name pattern", "only list snapshots whose name matches this glob pattern").String()
	cmd.Action(func(ctx *kingpin.ParseContext) error {
		store, err := openStore()
		if nil != err {
			return err
		}

		var snapshots []*domain.Snapshot
		if *namePattern == "" {
			snapshots, err = store.SnapshotDAL.List()
		} else {
			snapshots, err = store.SnapshotDAL.ListMatching(*namePattern)
		}
		if nil != err {
			return err
		}

		fmt.Fprintln(out, "Snapshot Name | Created (UTC) | File")
		for _, snapshot := range snapshots {
			fmt.Fprintf(out, "%s | %s | %s\n", snapshot.Name, snapshot.CreatedAt.Format(time.ANSIC), snapshot.FileName())
		}

		return nil
	})
}

func setupDeleteCommand() {
	cmd := app.Command("delete", "delete a snapshot")
	name := cmd.Arg("name", "name of the snapshot").Required().String()
	index := addIndexFlag(cmd)
	cmd.Action(func(ctx *kingpin.ParseContext) error {
		store, err := openStore()
		if nil != err {
			return err
		}

		snapshot, err := store.SnapshotDAL.Delete(*name, *index)
		if nil != err {
			return err
		}

		fmt.Fprintf(out, "Backup deleted: %s\n", snapshot.FileName())
		return nil
	})
}

func setupExtractCommand() {
	cmd := app.Command("extract", "extract a snapshot into a directory next to it")
	name := cmd.Arg("name", "name of the snapshot").Required().String()
	index := addIndexFlag(cmd)
	cmd.Action(func(ctx *kingpin.ParseContext) error {
		store, err := openStore()
		if nil != err {
			return err
		}

		destDir, fileCount, err := store.SnapshotDAL.Extract(*name, *index)
		if nil != err {
			return err
		}

		fmt.Fprintf(out, "Extracted %d files into %s\n", fileCount, destDir)
		return nil
	})
}

func setupVerifyCommand() {
	cmd := app.Command("verify", "check a snapshot's SHA-256 hash")
	name := cmd.Arg("name", "name of the snapshot").Required().String()
	expectedHash := cmd.Arg("hash", "expected SHA-256 hash of the snapshot, in hex").Required().String()
	index := addIndexFlag(cmd)
	cmd.Action(func(ctx *kingpin.ParseContext) error {
		store, err := openStore()
		if nil != err {
			return err
		}

		ok, err := store.SnapshotDAL.Verify(*name, *expectedHash, *index)
		if nil != err {
			return err
		}

		if !ok {
			return errors.Wrapf(ErrVerificationFailed, "snapshot %q", *name)
		}

		fmt.Fprintf(out, "Backup verified: %s\n", *name)
		return nil
	})
}

func setupGetHashCommand() {
	cmd := app.Command("get_hash", "print a snapshot's SHA-256 hash")
	name := cmd.Arg("name", "name of the snapshot").Required().String()
	index := addIndexFlag(cmd)
	cmd.Action(func(ctx *kingpin.ParseContext) error {
		store, err := openStore()
		if nil != err {
			return err
		}

		hash, err := store.SnapshotDAL.GetHash(*name, *index)
		if nil != err {
			return err
		}

		fmt.Fprintln(out, hash)
		return nil
	})
}

func setupExcludeCommand() {
	cmd := app.Command("exclude", "add an exclusion rule, used by every following snapshot")
	pattern := cmd.Arg("pattern", `pattern to exclude. "*" matches within one path segment, a trailing "/**" matches a directory and everything in it`).Required().String()
	kindName := cmd.Flag("type", "how the pattern is matched against paths").Short('t').Default(excludesmatcher.MatchKindWildcard.String()).Enum(excludesmatcher.MatchKindNames...)
	cmd.Action(func(ctx *kingpin.ParseContext) error {
		kind, err := excludesmatcher.ParseMatchKind(*kindName)
		if nil != err {
			return err
		}

		store, err := openStore()
		if nil != err {
			return err
		}

		_, err = store.ExcludesDAL.AddRule(*pattern, kind)
		if nil != err {
			return err
		}

		fmt.Fprintf(out, "Exclusion rule added: %s (%s)\n", excludesmatcher.NormalisePattern(*pattern), kind)
		return nil
	})
}

func setupListExcludesCommand() {
	cmd := app.Command("excludes", "list the exclusion rules, in the order they are applied")
	cmd.Action(func(ctx *kingpin.ParseContext) error {
		store, err := openStore()
		if nil != err {
			return err
		}

		matcher, err := store.ExcludesDAL.Load()
		if nil != err {
			return err
		}

		for i, rule := range matcher.Rules() {
			if matcher.IsBuiltIn(i) {
				fmt.Fprintf(out, "%s [built-in]\n", rule)
				continue
			}
			fmt.Fprintln(out, rule)
		}

		return nil
	})
}
