package configdb

import (
	"os"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func createTestDB(t *testing.T) *ConfigDB {
	os.Remove("test-configdb.sqlite")
	db, err := NewConfigDB(logs.NewTestingLog(t), "test-configdb.sqlite")
	require.NoError(t, err)
	t.Cleanup(func() {
		os.Remove("test-configdb.sqlite")
	})
	return db
}

func TestSubjects(t *testing.T) {
	db := createTestDB(t)

	// Missing subject is not an error
	s, err := db.GetSubjectFromID(123)
	require.NoError(t, err)
	require.Nil(t, s)
	require.Nil(t, db.ResolveSubject(123))

	require.ErrorIs(t, db.CreateSubject(&Subject{Name: "  "}), ErrSubjectNameRequired)

	alice := &Subject{Name: "Alice", Location: "Jl. Merdeka 1\nBandung", ChatID: " 1234 "}
	require.NoError(t, db.CreateSubject(alice))
	require.NotEqual(t, int64(0), alice.ID)
	require.Equal(t, "1234", alice.ChatID)

	bob := &Subject{Name: "Bob", Location: "Depok", BotToken: "bot-bob"}
	require.NoError(t, db.CreateSubject(bob))

	s = db.ResolveSubject(alice.ID)
	require.NotNil(t, s)
	require.Equal(t, "Alice", s.Name)
	require.Equal(t, "Jl. Merdeka 1\nBandung", s.Location)
	require.True(t, s.HasRecipient())
	require.False(t, s.CreatedAt.Get().IsZero())

	s = db.ResolveSubject(bob.ID)
	require.NotNil(t, s)
	require.False(t, s.HasRecipient())
	require.Equal(t, "bot-bob", s.BotToken)

	all, err := db.ListSubjects()
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "Alice", all[0].Name)

	require.NoError(t, db.DeleteSubject(bob.ID))
	require.Nil(t, db.ResolveSubject(bob.ID))
}
