package domain

// Side es el lado del mercado que representa un token.
type Side string

const (
	SideYes  Side = "YES"
	SideNo   Side = "NO"
	SideDraw Side = "DRAW"
)

// MarketRef identifica una unidad tradeable: un outcome token del CLOB,
// opcionalmente emparejado con un instrumento de referencia (spot/futuros)
// y agrupado con los demás outcomes del mismo evento.
type MarketRef struct {
	TokenID string
	Name    string // pregunta del mercado o slug, para logs y reporting
	Side    Side

	// RefInstrument es el id del instrumento de referencia (p.ej. par spot
	// de Kraken) para lead_lag. Vacío en los modos que no lo usan.
	RefInstrument string

	// SiblingTokenID es el token del outcome opuesto en un mercado binario.
	// Lo usa pm_trend con auto-side para comparar momentum entre lados.
	SiblingTokenID string

	// Group agrupa los outcomes del mismo evento subyacente: nunca se
	// mantienen abiertos dos lados del mismo grupo a la vez.
	Group string
}

// SameGroup devuelve true si ambos refs pertenecen al mismo grupo no vacío.
func (m MarketRef) SameGroup(other MarketRef) bool {
	return m.Group != "" && m.Group == other.Group
}
