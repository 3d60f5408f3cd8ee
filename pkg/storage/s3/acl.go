package s3

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// renderACL renders an owner and grant list in the compact angle-bracket form
// interop listing tools print, e.g.
//
//	<Owner:00b4903a97..., <UserById: 00b4903a97...>: FULL_CONTROL>
//
// An ACL with no owner and no grants renders as "<>".
func renderACL(owner *types.Owner, grants []types.Grant) string {
	ownerID := ""
	if owner != nil {
		ownerID = aws.ToString(owner.ID)
		if ownerID == "" {
			ownerID = aws.ToString(owner.DisplayName)
		}
	}

	if ownerID == "" && len(grants) == 0 {
		return "<>"
	}

	var b strings.Builder
	b.WriteString("<Owner:")
	b.WriteString(ownerID)
	for _, g := range grants {
		b.WriteString(", <")
		b.WriteString(granteeString(g.Grantee))
		b.WriteString(">: ")
		b.WriteString(string(g.Permission))
	}
	b.WriteString(">")
	return b.String()
}

// granteeString renders a single grantee in the UserById/GroupByUri style.
func granteeString(g *types.Grantee) string {
	if g == nil {
		return "Unknown"
	}
	switch g.Type {
	case types.TypeCanonicalUser:
		return "UserById: " + aws.ToString(g.ID)
	case types.TypeAmazonCustomerByEmail:
		return "UserByEmail: " + aws.ToString(g.EmailAddress)
	case types.TypeGroup:
		return "GroupByUri: " + aws.ToString(g.URI)
	default:
		return string(g.Type) + ": " + aws.ToString(g.ID)
	}
}
