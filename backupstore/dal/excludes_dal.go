package dal

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/workspace-backup-app/backupstore/excludesmatcher"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ExcludesDAL persists the user-added exclusion rules of a workspace.
// The built-in rules are never written; they are recreated on every Load.
type ExcludesDAL struct {
	storeDAL *StoreDAL
}

type excludesFile struct {
	Rules []excludesFileRule `yaml:"rules"`
}

type excludesFileRule struct {
	Pattern string `yaml:"pattern"`
	Kind    string `yaml:"kind"`
}

// Load reads the saved rules into a new ExcludesMatcher, after the built-in rules.
// If nothing has been saved yet, the matcher only has the built-in rules.
// Every saved rule goes through AddRule again, so a hand-edited invalid rule is reported, not skipped.
func (dal *ExcludesDAL) Load() (*excludesmatcher.ExcludesMatcher, error) {
	matcher := excludesmatcher.NewExcludesMatcher()

	b, err := afero.ReadFile(dal.storeDAL.fs, dal.excludesFilePath())
	if nil != err {
		if os.IsNotExist(err) {
			return matcher, nil
		}
		return nil, errorsx.Wrap(err)
	}

	var file excludesFile
	err = yaml.Unmarshal(b, &file)
	if nil != err {
		return nil, errors.Wrapf(err, "couldn't read exclusion rules from '%s'", dal.excludesFilePath())
	}

	for _, rule := range file.Rules {
		kind, err := excludesmatcher.ParseMatchKind(rule.Kind)
		if nil != err {
			return nil, errors.Wrapf(err, "invalid exclusion rule %q in '%s'", rule.Pattern, dal.excludesFilePath())
		}

		err = matcher.AddRule(rule.Pattern, kind)
		if nil != err {
			return nil, err
		}
	}

	return matcher, nil
}

// Save writes the matcher's user rules, replacing whatever was saved before
func (dal *ExcludesDAL) Save(matcher *excludesmatcher.ExcludesMatcher) error {
	file := excludesFile{
		Rules: []excludesFileRule{},
	}
	for _, rule := range matcher.UserRules() {
		file.Rules = append(file.Rules, excludesFileRule{
			Pattern: rule.Pattern(),
			Kind:    rule.Kind().String(),
		})
	}

	buf := bytes.NewBuffer(nil)
	encoder := yaml.NewEncoder(buf)
	encoder.SetIndent(2)
	err := encoder.Encode(file)
	if nil != err {
		return errorsx.Wrap(err)
	}

	err = encoder.Close()
	if nil != err {
		return errorsx.Wrap(err)
	}

	tempPath := dal.excludesFilePath() + tempFileExtension
	err = afero.WriteFile(dal.storeDAL.fs, tempPath, buf.Bytes(), 0600)
	if nil != err {
		return errorsx.Wrap(err)
	}

	err = dal.storeDAL.fs.Rename(tempPath, dal.excludesFilePath())
	if nil != err {
		return errorsx.Wrap(err)
	}

	return nil
}

// AddRule loads the saved rules, adds the new rule and saves them again, holding the store lock throughout
func (dal *ExcludesDAL) AddRule(pattern string, kind excludesmatcher.MatchKind) (*excludesmatcher.ExcludesMatcher, error) {
	var matcher *excludesmatcher.ExcludesMatcher
	err := dal.storeDAL.LockDAL.withStoreLock("adding exclusion rule", func() error {
		var err error
		matcher, err = dal.Load()
		if nil != err {
			return err
		}

		err = matcher.AddRule(pattern, kind)
		if nil != err {
			return err
		}

		return dal.Save(matcher)
	})
	if nil != err {
		return nil, err
	}

	return matcher, nil
}

func (dal *ExcludesDAL) excludesFilePath() string {
	return filepath.Join(dal.storeDAL.dataDirPath(), excludesFileName)
}
