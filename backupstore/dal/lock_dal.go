package dal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/pkg/errors"
)

type LockDAL struct {
	storeDAL *StoreDAL
}

// GetLockInformation gets the information about the current Lock on the Store, if any.
// It returns
// - (*StoreLock, nil) if there is a lock
// - (nil, nil) if there is currently no lock
// - (nil, error) for any error
func (s *LockDAL) GetLockInformation() (*StoreLock, error) {
	file, err := s.storeDAL.fs.Open(s.getLockFilePath())
	if nil != err {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var storeLock *StoreLock
	err = json.NewDecoder(file).Decode(&storeLock)
	if nil != err {
		return nil, err
	}

	return storeLock, nil
}

var ErrLockAlreadyTaken = errors.New("lock already taken")

// withStoreLock runs fn while holding the store lock
func (s *LockDAL) withStoreLock(text string, fn func() error) error {
	_, err := s.acquireStoreLock(text)
	if nil != err {
		return err
	}

	fnErr := fn()

	err = s.removeStoreLock()
	if nil != err {
		if nil != fnErr {
			return errors.Errorf("%s. Additionally, couldn't remove the store lock. Error: '%s'", fnErr, err)
		}
		return err
	}

	return fnErr
}

func (s *LockDAL) acquireStoreLock(text string) (*StoreLock, error) {
	existingLock, err := s.GetLockInformation()
	if nil != err {
		return nil, errorsx.Wrap(err)
	}

	if nil != existingLock {
		return nil, errors.Wrapf(ErrLockAlreadyTaken, "held by pid %d since %s (%s)",
			existingLock.Pid,
			existingLock.AcquisitionTime.Format(time.RFC3339),
			existingLock.Text,
		)
	}

	lockFile, err := s.storeDAL.fs.OpenFile(s.getLockFilePath(), os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if nil != err {
		if os.IsExist(err) {
			return nil, ErrLockAlreadyTaken
		}
		return nil, errorsx.Wrap(err)
	}
	defer lockFile.Close()

	lock := &StoreLock{
		s.storeDAL.nowProvider(),
		os.Getpid(),
		text,
	}

	err = json.NewEncoder(lockFile).Encode(lock)
	if nil != err {
		return nil, errorsx.Wrap(err)
	}

	return lock, nil
}

func (s *LockDAL) removeStoreLock() error {
	err := s.storeDAL.fs.RemoveAll(s.getLockFilePath())
	if err != nil {
		return errorsx.Wrap(err)
	}
	return nil
}

func (s *LockDAL) getLockFilePath() string {
	return filepath.Join(s.storeDAL.dataDirPath(), locksDirName, "store_lock.json")
}

type StoreLock struct {
	AcquisitionTime time.Time `json:"acquisitionTime"`
	Pid             int       `json:"pid"`
	Text            string    `json:"text"`
}
