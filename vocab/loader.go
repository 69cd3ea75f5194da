package vocab

import (
	"fmt"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/exp/maps"

	"github.com/tokenpipe/tokenpipe/util"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ModelType names the subword algorithm a definition was trained for.
type ModelType string

const (
	ModelBPE        ModelType = "BPE"
	ModelWordPiece  ModelType = "WordPiece"
	ModelUnigram    ModelType = "Unigram"
	ModelRankTable  ModelType = "RankTable"
	ModelTrieGreedy ModelType = "TrieGreedy"
)

// Definition is the declarative tokenizer definition the pipeline is built
// from. The shape follows the tokenizer.json layout for the model section;
// special-token slots are resolved into a flat map since the pipeline only
// needs the bindings, not how the source config spelled them.
type Definition struct {
	Model struct {
		Type                    ModelType           `json:"type"`
		Vocab                   jsoniter.RawMessage `json:"vocab"`
		Merges                  []string            `json:"merges,omitempty"`
		ContinuingSubwordPrefix string              `json:"continuing_subword_prefix,omitempty"`
		ByteLevel               bool                `json:"byte_level,omitempty"`
	} `json:"model"`

	Normalizer struct {
		Form         string `json:"form,omitempty"` // NFC or NFD
		Lowercase    bool   `json:"lowercase,omitempty"`
		StripAccents bool   `json:"strip_accents,omitempty"`
	} `json:"normalizer,omitempty"`

	PreTokenizer struct {
		Type    string `json:"type,omitempty"` // whitespace, bert, pattern
		Pattern string `json:"pattern,omitempty"`
	} `json:"pre_tokenizer,omitempty"`

	// SpecialTokens binds slot names (unk, bos, eos, pad, cls, sep, mask) to
	// token strings which must exist in the vocabulary.
	SpecialTokens map[string]string `json:"special_tokens,omitempty"`
}

// Load reads and parses a definition. The path goes through the afs file
// layer, so s3:// locations work the same as local ones.
func Load(path string) (*Definition, error) {
	raw, err := util.ReadFileBytes(path)
	if err != nil {
		return nil, fmt.Errorf("reading tokenizer definition: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a definition from raw JSON.
func Parse(raw []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("parsing tokenizer definition: %w", err)
	}
	if def.Model.Type == "" {
		return nil, fmt.Errorf("tokenizer definition has no model type")
	}
	return &def, nil
}

// Build resolves the definition into an immutable Vocabulary. Malformed
// vocab/merge tables and dangling special-token bindings are construction
// errors: a broken definition must fail here, not degrade at run time.
func (def *Definition) Build() (*Vocabulary, error) {
	values, scores, err := decodeVocab(def.Model.Vocab)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("tokenizer definition has an empty vocabulary")
	}

	v := New(values)
	v.Scores = scores
	v.Merges = def.Model.Merges

	for slot, token := range def.SpecialTokens {
		special, err := parseSpecial(slot)
		if err != nil {
			return nil, err
		}
		id := v.Encode(token)
		if id < 0 {
			return nil, fmt.Errorf("special token %s = %q is not in the vocabulary", slot, token)
		}
		if err := v.SetSpecial(special, id); err != nil {
			return nil, err
		}
	}

	switch def.Model.Type {
	case ModelBPE:
		if err := v.CheckMerges(); err != nil {
			return nil, err
		}
	case ModelRankTable:
		if err := v.CheckByteCoverage(); err != nil {
			return nil, err
		}
	case ModelUnigram:
		if len(v.Scores) != len(v.Values) {
			return nil, fmt.Errorf("unigram definition has %d scores for %d tokens", len(v.Scores), len(v.Values))
		}
	case ModelWordPiece, ModelTrieGreedy:
	default:
		return nil, fmt.Errorf("unknown model type %q", def.Model.Type)
	}

	return v, nil
}

// decodeVocab accepts the two vocab encodings found in the wild: an object
// mapping token to id (BPE/WordPiece) and an array of [token, score] pairs
// in id order (Unigram).
func decodeVocab(raw jsoniter.RawMessage) ([]string, []float32, error) {
	if len(raw) == 0 {
		return nil, nil, fmt.Errorf("tokenizer definition has no vocab")
	}

	if raw[0] == '{' {
		var byToken map[string]int32
		if err := json.Unmarshal(raw, &byToken); err != nil {
			return nil, nil, fmt.Errorf("parsing vocab object: %w", err)
		}

		values := make([]string, len(byToken))
		seen := make([]bool, len(byToken))
		tokens := maps.Keys(byToken)
		sort.Strings(tokens)
		for _, token := range tokens {
			id := byToken[token]
			if id < 0 || int(id) >= len(values) {
				return nil, nil, fmt.Errorf("vocab id %d for %q outside [0, %d)", id, token, len(values))
			}
			if seen[id] {
				return nil, nil, fmt.Errorf("vocab id %d bound to both %q and %q", id, values[id], token)
			}
			values[id] = token
			seen[id] = true
		}
		return values, nil, nil
	}

	var pairs [][2]jsoniter.RawMessage
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, nil, fmt.Errorf("parsing vocab pairs: %w", err)
	}
	values := make([]string, len(pairs))
	scores := make([]float32, len(pairs))
	for i, pair := range pairs {
		if err := json.Unmarshal(pair[0], &values[i]); err != nil {
			return nil, nil, fmt.Errorf("parsing vocab entry %d token: %w", i, err)
		}
		if err := json.Unmarshal(pair[1], &scores[i]); err != nil {
			return nil, nil, fmt.Errorf("parsing vocab entry %d score: %w", i, err)
		}
	}
	return values, scores, nil
}

func parseSpecial(slot string) (Special, error) {
	switch slot {
	case "unk":
		return Unk, nil
	case "bos":
		return Bos, nil
	case "eos":
		return Eos, nil
	case "pad":
		return Pad, nil
	case "cls":
		return Cls, nil
	case "sep":
		return Sep, nil
	case "mask":
		return Mask, nil
	default:
		return 0, fmt.Errorf("unknown special token slot %q", slot)
	}
}
