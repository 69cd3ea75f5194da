package vocab

// Trie is a byte-level prefix tree over token strings. Greedy matching walks
// it once per position, so lookups are O(length of longest match).
type Trie struct {
	root *trieNode
}

type trieNode struct {
	children map[byte]*trieNode
	id       int32
	leaf     bool
}

func NewTrie() *Trie {
	return &Trie{root: &trieNode{}}
}

func (t *Trie) Insert(s string, id int32) {
	node := t.root
	for i := 0; i < len(s); i++ {
		b := s[i]
		if node.children == nil {
			node.children = make(map[byte]*trieNode)
		}
		child, ok := node.children[b]
		if !ok {
			child = &trieNode{}
			node.children[b] = child
		}
		node = child
	}
	node.id = id
	node.leaf = true
}

// LongestPrefix returns the id of the longest token that is a prefix of s
// and the number of bytes it spans. When no token matches it returns (-1, 0).
func (t *Trie) LongestPrefix(s string) (int32, int) {
	node := t.root
	bestID, bestLen := int32(-1), 0
	for i := 0; i < len(s); i++ {
		child, ok := node.children[s[i]]
		if !ok {
			break
		}
		node = child
		if node.leaf {
			bestID, bestLen = node.id, i+1
		}
	}
	return bestID, bestLen
}

// HasPrefix reports whether s is a prefix of at least one inserted token.
func (t *Trie) HasPrefix(s string) bool {
	node := t.root
	for i := 0; i < len(s); i++ {
		child, ok := node.children[s[i]]
		if !ok {
			return false
		}
		node = child
	}
	return true
}
