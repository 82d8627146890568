package indexer

type Community struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Alias       string `json:"alias"`
	Logo        string `json:"logo"`
}

type CommunityIndexer struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

type CommunityNode struct {
	ChainID int `json:"chain_id"`
}

type CommunityToken struct {
	Standard string `json:"standard"`
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

type CommunityConfig struct {
	Community Community        `json:"community"`
	Indexer   CommunityIndexer `json:"indexer"`
	Node      CommunityNode    `json:"node"`
	Token     CommunityToken   `json:"token"`
	Version   int              `json:"version"`
}
