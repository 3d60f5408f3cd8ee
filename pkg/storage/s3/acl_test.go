package s3

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
)

func TestRenderACL(t *testing.T) {
	owner := &types.Owner{ID: aws.String("00b4903a97")}

	tests := []struct {
		name     string
		owner    *types.Owner
		grants   []types.Grant
		expected string
	}{
		{
			name:     "empty",
			expected: "<>",
		},
		{
			name:     "owner only",
			owner:    owner,
			expected: "<Owner:00b4903a97>",
		},
		{
			name:  "canonical user grant",
			owner: owner,
			grants: []types.Grant{{
				Grantee:    &types.Grantee{Type: types.TypeCanonicalUser, ID: aws.String("00b4903a97")},
				Permission: types.PermissionFullControl,
			}},
			expected: "<Owner:00b4903a97, <UserById: 00b4903a97>: FULL_CONTROL>",
		},
		{
			name:  "group grant",
			owner: owner,
			grants: []types.Grant{{
				Grantee:    &types.Grantee{Type: types.TypeGroup, URI: aws.String("http://acs.amazonaws.com/groups/global/AllUsers")},
				Permission: types.PermissionRead,
			}},
			expected: "<Owner:00b4903a97, <GroupByUri: http://acs.amazonaws.com/groups/global/AllUsers>: READ>",
		},
		{
			name:  "email grant",
			owner: owner,
			grants: []types.Grant{{
				Grantee:    &types.Grantee{Type: types.TypeAmazonCustomerByEmail, EmailAddress: aws.String("user@example.com")},
				Permission: types.PermissionWrite,
			}},
			expected: "<Owner:00b4903a97, <UserByEmail: user@example.com>: WRITE>",
		},
		{
			name:  "multiple grants",
			owner: owner,
			grants: []types.Grant{
				{
					Grantee:    &types.Grantee{Type: types.TypeCanonicalUser, ID: aws.String("aaa")},
					Permission: types.PermissionFullControl,
				},
				{
					Grantee:    &types.Grantee{Type: types.TypeCanonicalUser, ID: aws.String("bbb")},
					Permission: types.PermissionRead,
				},
			},
			expected: "<Owner:00b4903a97, <UserById: aaa>: FULL_CONTROL, <UserById: bbb>: READ>",
		},
		{
			name:  "display name fallback",
			owner: &types.Owner{DisplayName: aws.String("alice")},
			grants: []types.Grant{{
				Grantee:    &types.Grantee{Type: types.TypeCanonicalUser, ID: aws.String("aaa")},
				Permission: types.PermissionFullControl,
			}},
			expected: "<Owner:alice, <UserById: aaa>: FULL_CONTROL>",
		},
		{
			name: "nil grantee",
			grants: []types.Grant{{
				Permission: types.PermissionRead,
			}},
			expected: "<Owner:, <Unknown>: READ>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, renderACL(tt.owner, tt.grants))
		})
	}
}

func TestCleanETag(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", cleanETag(`"d41d8cd98f00b204e9800998ecf8427e"`))
	assert.Equal(t, "abc", cleanETag("abc"))
	assert.Equal(t, "", cleanETag(`""`))
}

func TestClampMaxKeys(t *testing.T) {
	assert.Equal(t, 500, clampMaxKeys(500, 1000))
	assert.Equal(t, 1000, clampMaxKeys(0, 1000))
	assert.Equal(t, MaxAllowedKeys, clampMaxKeys(5000, 1000))
	assert.Equal(t, 250, clampMaxKeys(-1, 250))
}

func TestResolveRegion(t *testing.T) {
	// SDK-resolved region wins.
	assert.Equal(t, "eu-west-1", resolveRegion("", "", "eu-west-1"))
	// No region, no endpoint: AWS default applies.
	assert.Equal(t, DefaultAWSRegion, resolveRegion("", "", ""))
	// S3-compatible endpoint: no defaulting.
	assert.Equal(t, "", resolveRegion("", "https://storage.googleapis.com", ""))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, (&Config{}).Validate())
	assert.NoError(t, (&Config{AccessKeyID: "id", SecretAccessKey: "secret"}).Validate())

	err := (&Config{AccessKeyID: "id"}).Validate()
	assert.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
