package render

import "hash/fnv"

// palette holds the band fill colors, cycled by owner name.
var palette = []string{
	"#cfe8ff", // light blue
	"#ffc7ce", // light pink
	"#d5f5e3", // light green
	"#f9e79f", // light yellow
	"#f5cba7", // light orange
}

// bandColor picks a palette color for an event. The key is the owner name,
// falling back to the title when the name is empty, hashed with FNV-1a over
// its UTF-8 bytes. FNV-1a is stable across processes and platforms, so the
// same owner always gets the same color.
func bandColor(name, title string) string {
	key := name
	if key == "" {
		key = title
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return palette[int(h.Sum32()%uint32(len(palette)))]
}
