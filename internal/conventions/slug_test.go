package conventions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Foo Con", "foo-con"},
		{"  Anime   Expo 2025!! ", "anime-expo-2025"},
		{"Crème Brûlée Fest", "creme-brulee-fest"},
		{"Comic-Con: San Diego", "comic-con-san-diego"},
		{"---", "convention"},
		{"", "convention"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSlugifyTruncates(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "word "
	}
	s := Slugify(long)
	assert.LessOrEqual(t, len(s), maxSlugLen)
	assert.True(t, ValidSlug(s))
}

func TestExplicitSlug(t *testing.T) {
	got, err := ExplicitSlug("Fan Expo 2026")
	require.NoError(t, err)
	assert.Equal(t, "fan-expo-2026", got)

	for _, in := range []string{"!!!", "---", " "} {
		_, err := ExplicitSlug(in)
		assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err), in)
	}
}

func TestDeletedSlugRoundTrip(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	deleted := DeletedSlug("foo-con", now)
	assert.Regexp(t, `^foo-con-DELETED-[0-9a-z]+-[0-9a-z]{6}$`, deleted)
	assert.True(t, IsDeletedSlug(deleted))
	assert.False(t, IsDeletedSlug("foo-con"))

	restored, err := RestoredSlug(&models.Convention{Slug: deleted})
	require.NoError(t, err)
	assert.Equal(t, "foo-con", restored)
}

func TestRestoredSlugPrefersStoredOriginal(t *testing.T) {
	orig := "my-event-DELETED-looking"
	got, err := RestoredSlug(&models.Convention{Slug: "x-DELETED-abc-def", OriginalSlug: &orig})
	require.NoError(t, err)
	assert.Equal(t, orig, got)
}

func TestRestoredSlugUnrecoverable(t *testing.T) {
	_, err := RestoredSlug(&models.Convention{Slug: "foo-con"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
}

func TestDuplicateCandidates(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	c := duplicateCandidates("foo-con", now)
	require.Len(t, c, 3)
	assert.Equal(t, "foo-con-copy", c[0])
	assert.Regexp(t, `^foo-con-copy-[0-9a-z]{6}$`, c[1])
	assert.Regexp(t, `^foo-con-copy-[0-9a-z]+-[0-9a-z]{4}$`, c[2])
	assert.Equal(t, "Foo Con (Copy)", CopyName("Foo Con"))
}
