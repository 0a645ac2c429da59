package types

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genHexAddress() gopter.Gen {
	return gen.SliceOfN(40, gen.RuneRange('a', 'f')).Map(func(runes []rune) string {
		return "0x" + string(runes)
	})
}

func TestNormalizeAddressProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("normalization is idempotent", prop.ForAll(
		func(address string) bool {
			once := NormalizeAddress(address)
			return NormalizeAddress(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("case variants normalize to the same address", prop.ForAll(
		func(address string) bool {
			return NormalizeAddress(strings.ToUpper(address)) == NormalizeAddress(address)
		},
		genHexAddress(),
	))

	properties.Property("valid addresses stay valid after normalization", prop.ForAll(
		func(address string) bool {
			return ValidAddress(address) && ValidAddress(NormalizeAddress(address))
		},
		genHexAddress(),
	))

	properties.TestingRun(t)
}
