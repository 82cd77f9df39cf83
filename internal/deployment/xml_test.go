package deployment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSessionKey(t *testing.T) {
	key, err := parseSessionKey([]byte("<response>\n <sessionKey> abc123 </sessionKey>\n</response>"))
	require.NoError(t, err)
	assert.Equal(t, "abc123", key)

	_, err = parseSessionKey([]byte("<response><sessionKey></sessionKey></response>"))
	assert.Error(t, err)

	_, err = parseSessionKey([]byte("<response><messages/></response>"))
	assert.True(t, errors.Is(err, errFieldNotFound))

	_, err = parseSessionKey([]byte("not xml at all"))
	assert.Error(t, err)
}

func TestParseWhitelistSize(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{
			name: "bare child",
			body: "<entry><whitelist-size>4</whitelist-size></entry>",
			want: 4,
		},
		{
			name: "atom key",
			body: `<feed xmlns="http://www.w3.org/2005/Atom" xmlns:s="http://dev.splunk.com/ns/rest">
<entry><content><s:dict><s:key name="continueMatching">1</s:key><s:key name="whitelist-size">2</s:key></s:dict></content></entry></feed>`,
			want: 2,
		},
		{
			name:    "missing",
			body:    "<entry><name>x</name></entry>",
			wantErr: true,
		},
		{
			name:    "not a number",
			body:    "<entry><whitelist-size>many</whitelist-size></entry>",
			wantErr: true,
		},
		{
			name:    "negative",
			body:    "<entry><whitelist-size>-1</whitelist-size></entry>",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWhitelistSize([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
