package replica

import (
	"encoding/hex"

	"github.com/evidencevault/vault/internal/apperr"
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// CIDFromDigest wraps an already-computed SHA-256 digest (lowercase hex,
// as stored on the Artifact) in a CIDv1 raw-leaf multihash envelope. It
// never rehashes the bytes — the whole point of storing the digest once
// is to reuse it here.
func CIDFromDigest(digestHex string) (string, error) {
	raw, err := hex.DecodeString(digestHex)
	if err != nil {
		return "", apperr.Wrap(apperr.KindValidation, err, "decoding digest for CID")
	}

	digestMh, err := mh.Encode(raw, mh.SHA2_256)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "encoding multihash")
	}

	c := cid.NewCidV1(cid.Raw, digestMh)
	return c.String(), nil
}
