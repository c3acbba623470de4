package ingestion

import "strings"

// Chunk splits text into overlapping rune windows. Windows never split a
// UTF-8 sequence because slicing happens on the rune slice. Empty or
// short input still yields exactly one chunk so every document has at
// least one addressable unit.
func Chunk(text string, cfg ChunkingConfig) []ChunkInput {
	cfg = cfg.withDefaults()

	runes := []rune(text)
	if strings.TrimSpace(text) == "" || len(runes) <= cfg.MaxSize {
		return []ChunkInput{{
			Ord:       0,
			Content:   text,
			ChunkType: classifyChunk(text),
			Meta:      chunkMeta(cfg, 0, len(runes)),
		}}
	}

	overlap := int(float64(cfg.MaxSize) * cfg.OverlapRatio)
	if overlap >= cfg.MaxSize {
		overlap = cfg.MaxSize - 1
	}
	step := cfg.MaxSize - overlap

	var out []ChunkInput
	for start := 0; start < len(runes); start += step {
		end := start + cfg.MaxSize
		if end > len(runes) {
			end = len(runes)
		}
		content := string(runes[start:end])
		out = append(out, ChunkInput{
			Ord:       len(out),
			Content:   content,
			ChunkType: classifyChunk(content),
			Meta:      chunkMeta(cfg, start, end),
		})
		if end == len(runes) {
			break
		}
	}
	return out
}

// chunkMeta records where the window sits in the source document, in rune
// offsets, plus the language hint when one was supplied.
func chunkMeta(cfg ChunkingConfig, start, end int) map[string]interface{} {
	meta := map[string]interface{}{
		ChunkMetaStartRune: start,
		ChunkMetaEndRune:   end,
	}
	if cfg.LanguageHint != "" {
		meta[ChunkMetaLanguage] = cfg.LanguageHint
	}
	return meta
}

// classifyChunk marks a chunk whose first non-blank line is a markdown
// heading; everything else is prose.
func classifyChunk(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			return ChunkTypeHeader
		}
		break
	}
	return ChunkTypeParagraph
}
