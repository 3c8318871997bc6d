package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taskScheduler/internal/logger"
	"taskScheduler/internal/models/session"
	repo "taskScheduler/internal/repository"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var bucketSessions = []byte("sessions")

var errBucketMissing = errors.New("bucket sessions не найден")

// BoltStore переживает перезапуск процесса: вход пользователей не теряется.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		logger.Error("Sessions: Ошибка открытия bbolt", err, zap.String("path", path))
		return nil, fmt.Errorf("открытие хранилища сессий: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("создание bucket сессий: %w", err)
	}

	logger.Info("Sessions: Хранилище сессий открыто", zap.String("path", path))
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Save(ctx context.Context, sess *session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("сериализация сессии: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.Put([]byte(sess.ID), data)
	})
}

func (s *BoltStore) Get(ctx context.Context, id string) (*session.Session, error) {
	var sess *session.Session

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)
		if bucket == nil {
			return errBucketMissing
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return repo.ErrNotFound
		}

		sess = &session.Session{}
		if err := json.Unmarshal(data, sess); err != nil {
			return fmt.Errorf("разбор сессии: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *BoltStore) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)
		if bucket == nil {
			return errBucketMissing
		}
		if bucket.Get([]byte(id)) == nil {
			return repo.ErrNotFound
		}
		return bucket.Delete([]byte(id))
	})
}

func (s *BoltStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	removed := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)
		if bucket == nil {
			return errBucketMissing
		}

		var expired [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var sess session.Session
			if err := json.Unmarshal(v, &sess); err != nil {
				logger.Warn("Sessions: Повреждённая запись удаляется", zap.Error(err))
				expired = append(expired, append([]byte(nil), k...))
				return nil
			}
			if sess.Expired(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		// удалять во время ForEach нельзя
		for _, k := range expired {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("удаление истёкших сессий: %w", err)
	}
	return removed, nil
}
