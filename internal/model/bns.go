package model

// BnsName is a registered name record.
type BnsName struct {
	Name           string
	Namespace      string
	Address        string
	Expired        bool
	ExpireBlock    uint32
	GracePeriodEnd uint32
	Zonefile       string
	ZonefileHash   string
	TxID           string
	TxIndex        uint32
	BlockHeight    uint32
	IndexBlockHash string
	Canonical      bool
}

// BnsNamespace is a revealed/readied namespace record.
type BnsNamespace struct {
	Namespace         string
	Address           string
	Lifetime          uint32
	Revealed          bool
	Launched          bool
	Ready             bool
	TxID              string
	TxIndex           uint32
	BlockHeight       uint32
	IndexBlockHash    string
	Canonical         bool
	NamespaceImporter string
}

// BnsSubdomain is an off-chain subdomain registered under a name.
type BnsSubdomain struct {
	FullyQualifiedSubdomain string
	Name                    string
	Namespace               string
	Owner                   string
	Zonefile                string
	ZonefileHash            string
	ParentZonefileHash      string
	ParentZonefileIndex     uint32
	TxID                    string
	IndexBlockHash          string
	Canonical               bool
}

// Attachment is a BNS zonefile blob paired with its metadata.
type Attachment struct {
	Op           string
	Name         string
	Namespace    string
	ZonefileHash string
	ZonefileHex  string
	TxID         string
	IndexBlockHash string
	BlockHeight  uint32
}
