package entities

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMediaCategory(t *testing.T) {
	c, err := ParseMediaCategory("image")
	require.NoError(t, err)
	require.Equal(t, ImageCategory, c)

	c, err = ParseMediaCategory("reel")
	require.NoError(t, err)
	require.Equal(t, ReelCategory, c)

	_, err = ParseMediaCategory("story")
	require.Error(t, err)
}

func TestParseVisibility(t *testing.T) {
	tt := []struct {
		in  string
		out Visibility
		err bool
	}{
		{in: "", out: PublicVisibility},
		{in: "public", out: PublicVisibility},
		{in: "private", out: PrivateVisibility},
		{in: "friends", err: true},
	}

	for i := range tt {
		tc := tt[i]
		t.Run(tc.in, func(t *testing.T) {
			v, err := ParseVisibility(tc.in)
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.out, v)
		})
	}
}

func TestPost_LikedBy(t *testing.T) {
	p := Post{Likes: []string{"a", "b"}}
	require.True(t, p.LikedBy("a"))
	require.False(t, p.LikedBy("c"))
}

func TestUser_HasFollower(t *testing.T) {
	u := User{Followers: []string{"b"}}
	require.True(t, u.HasFollower("b"))
	require.False(t, u.HasFollower("c"))
}
