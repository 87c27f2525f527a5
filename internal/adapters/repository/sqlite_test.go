package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/okian/homedash/internal/adapters/repository"
	"github.com/okian/homedash/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestSQLiteStore(t *testing.T) {
	convey.Convey("Given an in-memory store", t, func() {
		ctx := context.Background()
		store, err := repository.Open(ctx, ":memory:", repository.WithLogger(logger.Nop()))
		convey.So(err, convey.ShouldBeNil)
		defer store.Close()

		convey.Convey("When reading a missing key", func() {
			_, err := store.Get(ctx, "_auth.GoogleApi")

			convey.Convey("Then ErrNotFound is returned", func() {
				convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a value is written and overwritten", func() {
			convey.So(store.Put(ctx, "k", []byte("one")), convey.ShouldBeNil)
			convey.So(store.Put(ctx, "k", []byte("two")), convey.ShouldBeNil)

			convey.Convey("Then the latest value is read back", func() {
				v, err := store.Get(ctx, "k")
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(v), convey.ShouldEqual, "two")
			})

			convey.Convey("Then deleting removes it and is idempotent", func() {
				convey.So(store.Delete(ctx, "k"), convey.ShouldBeNil)
				convey.So(store.Delete(ctx, "k"), convey.ShouldBeNil)
				_, err := store.Get(ctx, "k")
				convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
			})
		})
	})
}

func TestSQLiteStoreSealing(t *testing.T) {
	convey.Convey("Given a file-backed store with a secret", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "homedash.db")
		quiet := repository.WithLogger(logger.Nop())

		sealed, err := repository.Open(ctx, path, repository.WithSecret("s3cret"), quiet)
		convey.So(err, convey.ShouldBeNil)
		convey.So(sealed.Put(ctx, "token", []byte(`{"access_token":"at"}`)), convey.ShouldBeNil)
		convey.So(sealed.Close(), convey.ShouldBeNil)

		convey.Convey("When reopened with the same secret", func() {
			store, err := repository.Open(ctx, path, repository.WithSecret("s3cret"), quiet)
			convey.So(err, convey.ShouldBeNil)
			defer store.Close()

			convey.Convey("Then the value survives the restart", func() {
				v, err := store.Get(ctx, "token")
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(v), convey.ShouldEqual, `{"access_token":"at"}`)
			})
		})

		convey.Convey("When reopened without a secret", func() {
			store, err := repository.Open(ctx, path, quiet)
			convey.So(err, convey.ShouldBeNil)
			defer store.Close()

			convey.Convey("Then the value cannot be read", func() {
				_, err := store.Get(ctx, "token")
				convey.So(errors.Is(err, repository.ErrSealed), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When reopened with a different secret", func() {
			store, err := repository.Open(ctx, path, repository.WithSecret("other"), quiet)
			convey.So(err, convey.ShouldBeNil)
			defer store.Close()

			convey.Convey("Then opening fails with ErrSealed", func() {
				_, err := store.Get(ctx, "token")
				convey.So(errors.Is(err, repository.ErrSealed), convey.ShouldBeTrue)
			})
		})
	})
}

func TestSealer(t *testing.T) {
	convey.Convey("Given a sealer", t, func() {
		salt, err := repository.NewSalt()
		convey.So(err, convey.ShouldBeNil)
		s, err := repository.NewSealer("secret", salt)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then seal and open round-trip", func() {
			box, err := s.Seal([]byte("hello"))
			convey.So(err, convey.ShouldBeNil)
			convey.So(repository.IsSealed(box), convey.ShouldBeTrue)
			plain, err := s.Open(box)
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(plain), convey.ShouldEqual, "hello")
		})

		convey.Convey("Then plaintext values pass through Open", func() {
			plain, err := s.Open([]byte("legacy"))
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(plain), convey.ShouldEqual, "legacy")
		})

		convey.Convey("Then an empty secret is rejected", func() {
			_, err := repository.NewSealer("", salt)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
