package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// DexscopeDark matches the charmtone palette used by the terminal views.
var DexscopeDark = styles.Register(chroma.MustNewStyle("dexscope-dark", chroma.StyleEntries{
	chroma.Text:       "#DFDBDD",
	chroma.Background: "bg:#1e1e1e",

	chroma.NameTag:         "#00A4FF", // object keys
	chroma.LiteralString:   "#12C78F",
	chroma.LiteralNumber:   "#FF5F87",
	chroma.KeywordConstant: "#EB5DFF", // true, false, null
	chroma.Punctuation:     "#858392",
}))
