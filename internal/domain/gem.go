package domain

// Gem types accepted by the catalog.
const (
	GemSapphire = "sapphire"
	GemRuby     = "ruby"
	GemEmerald  = "emerald"
	GemDiamond  = "diamond"
	GemQuartz   = "quartz"
	GemOther    = "other"
)

type Gem struct {
	ID            string  `db:"id"`
	Name          string  `db:"name"`
	Type          string  `db:"type"` // sapphire|ruby|emerald|diamond|quartz|other
	Description   string  `db:"description"`
	Price         float64 `db:"price"`
	Carat         float64 `db:"carat"`
	Color         string  `db:"color"`
	Origin        string  `db:"origin"`
	Cut           string  `db:"cut"`
	Clarity       string  `db:"clarity"`
	ImagesJSON    string  `db:"images_json"`
	Certification string  `db:"certification"`
	InStock       bool    `db:"in_stock"`
	Featured      bool    `db:"featured"`
	CreatedAt     string  `db:"created_at"`
	UpdatedAt     string  `db:"updated_at"`
}

type Review struct {
	ID        string `db:"id"`
	GemID     string `db:"gem_id"`
	UserID    string `db:"user_id"`
	Rating    int    `db:"rating"` // 1..5
	Comment   string `db:"comment"`
	CreatedAt string `db:"created_at"`
}
