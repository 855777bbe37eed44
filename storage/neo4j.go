package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"hyperblend/config"
)

// Neo4jStore ist das Graph-Backend auf Basis von Neo4j.
type Neo4jStore struct {
	Driver   neo4j.DriverWithContext
	Database string
	Logger   *zap.Logger
}

// NewNeo4jStore baut die Verbindung auf und prüft die Erreichbarkeit.
func NewNeo4jStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Neo4jStore, error) {
	auth := neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, "")
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = 50
		c.SocketConnectTimeout = 10 * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	s := &Neo4jStore{Driver: driver, Database: cfg.Neo4jDatabase, Logger: logger}
	s.ensureSchema(ctx)
	return s, nil
}

// ensureSchema legt Eindeutigkeits-Constraints an. Fehler werden nur protokolliert.
func (s *Neo4jStore) ensureSchema(ctx context.Context) {
	for label := range labels {
		q := fmt.Sprintf("CREATE CONSTRAINT %s_id_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE", strings.ToLower(label), label)
		if err := s.write(ctx, q, nil); err != nil {
			s.Logger.Warn("Constraint konnte nicht angelegt werden", zap.String("label", label), zap.Error(err))
		}
	}
}

// Close schließt den Treiber.
func (s *Neo4jStore) Close(ctx context.Context) error {
	if s == nil || s.Driver == nil {
		return nil
	}
	return s.Driver.Close(ctx)
}

func (s *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.Database})
}

func (s *Neo4jStore) write(ctx context.Context, cypher string, params map[string]any) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *Neo4jStore) collect(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.session(ctx, mode)
	defer session.Close(ctx)

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	}

	var out any
	var err error
	if mode == neo4j.AccessModeWrite {
		out, err = session.ExecuteWrite(ctx, work)
	} else {
		out, err = session.ExecuteRead(ctx, work)
	}
	if err != nil {
		return nil, err
	}
	return out.([]*neo4j.Record), nil
}

func (s *Neo4jStore) Ping(ctx context.Context) error {
	return s.Driver.VerifyConnectivity(ctx)
}

func (s *Neo4jStore) Get(ctx context.Context, id string) (*Node, error) {
	recs, err := s.collect(ctx, neo4j.AccessModeRead,
		nodeMatch("n", id, "id")+" RETURN labels(n) AS labels, properties(n) AS props LIMIT 1",
		map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("neo4j get %s: %w", id, err)
	}
	if len(recs) == 0 {
		return nil, ErrNodeNotFound
	}
	return nodeFromRecord(recs[0], id), nil
}

func (s *Neo4jStore) MergeNode(ctx context.Context, label, id string, props map[string]any) (*Node, error) {
	if err := checkLabel(label); err != nil {
		return nil, err
	}
	if err := checkKeys(props); err != nil {
		return nil, err
	}
	cypher := fmt.Sprintf("MERGE (n:%s {id: $id}) SET n += $props RETURN labels(n) AS labels, properties(n) AS props", label)
	recs, err := s.collect(ctx, neo4j.AccessModeWrite, cypher, map[string]any{"id": id, "props": props})
	if err != nil {
		return nil, fmt.Errorf("neo4j merge %s %s: %w", label, id, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("neo4j merge %s %s: no result", label, id)
	}
	return nodeFromRecord(recs[0], id), nil
}

func (s *Neo4jStore) MergeEdge(ctx context.Context, label, fromID, toID string, props map[string]any) (*Edge, error) {
	if err := checkRel(label); err != nil {
		return nil, err
	}
	if err := checkKeys(props); err != nil {
		return nil, err
	}
	cypher := fmt.Sprintf(`%s
%s
MERGE (a)-[r:%s]->(b)
SET r += $props
RETURN properties(r) AS props`, nodeMatch("a", fromID, "from"), nodeMatch("b", toID, "to"), label)
	recs, err := s.collect(ctx, neo4j.AccessModeWrite, cypher, map[string]any{"from": fromID, "to": toID, "props": props})
	if err != nil {
		return nil, fmt.Errorf("neo4j merge %s %s->%s: %w", label, fromID, toID, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%s -> %s: %w", fromID, toID, ErrNodeNotFound)
	}
	e := &Edge{Label: label, FromID: fromID, ToID: toID}
	if v, ok := recs[0].Get("props"); ok {
		e.Props, _ = v.(map[string]any)
	}
	return e, nil
}

func (s *Neo4jStore) Query(ctx context.Context, f Filter) ([]*Node, error) {
	if err := checkLabel(f.Label); err != nil {
		return nil, err
	}
	if err := checkKeys(f.Where); err != nil {
		return nil, err
	}

	keys := sortedKeys(f.Where)

	params := map[string]any{}
	var conds []string
	for i, k := range keys {
		p := fmt.Sprintf("p%d", i)
		conds = append(conds, fmt.Sprintf("n.%s = $%s", k, p))
		params[p] = f.Where[k]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MATCH (n:%s)", f.Label)
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	b.WriteString(" RETURN labels(n) AS labels, properties(n) AS props ORDER BY n.id")
	if f.Limit > 0 {
		b.WriteString(" LIMIT $limit")
		params["limit"] = int64(f.Limit)
	}

	recs, err := s.collect(ctx, neo4j.AccessModeRead, b.String(), params)
	if err != nil {
		return nil, fmt.Errorf("neo4j query %s: %w", f.Label, err)
	}
	out := make([]*Node, 0, len(recs))
	for _, r := range recs {
		out = append(out, nodeFromRecord(r, ""))
	}
	return out, nil
}

func (s *Neo4jStore) Edges(ctx context.Context, f EdgeFilter) ([]*Edge, error) {
	rel := "r"
	if f.Label != "" {
		if err := checkRel(f.Label); err != nil {
			return nil, err
		}
		rel = "r:" + f.Label
	}
	params := map[string]any{}
	var conds []string
	if f.FromID != "" {
		conds = append(conds, "a.id = $from")
		params["from"] = f.FromID
	}
	if f.ToID != "" {
		conds = append(conds, "b.id = $to")
		params["to"] = f.ToID
	}
	cypher := fmt.Sprintf("MATCH (a)-[%s]->(b)", rel)
	if len(conds) > 0 {
		cypher += " WHERE " + strings.Join(conds, " AND ")
	}
	cypher += " RETURN type(r) AS label, a.id AS from_id, b.id AS to_id, properties(r) AS props ORDER BY from_id, to_id"

	recs, err := s.collect(ctx, neo4j.AccessModeRead, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("neo4j edges: %w", err)
	}
	out := make([]*Edge, 0, len(recs))
	for _, r := range recs {
		e := &Edge{}
		if v, ok := r.Get("label"); ok {
			e.Label, _ = v.(string)
		}
		if v, ok := r.Get("from_id"); ok {
			e.FromID, _ = v.(string)
		}
		if v, ok := r.Get("to_id"); ok {
			e.ToID, _ = v.(string)
		}
		if v, ok := r.Get("props"); ok {
			e.Props, _ = v.(map[string]any)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Neo4jStore) DeleteNode(ctx context.Context, id string) error {
	recs, err := s.collect(ctx, neo4j.AccessModeWrite,
		nodeMatch("n", id, "id")+" DETACH DELETE n RETURN count(*) AS deleted", map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("neo4j delete %s: %w", id, err)
	}
	if len(recs) == 0 {
		return ErrNodeNotFound
	}
	if v, ok := recs[0].Get("deleted"); ok {
		if n, _ := v.(int64); n == 0 {
			return ErrNodeNotFound
		}
	}
	return nil
}

func nodeFromRecord(r *neo4j.Record, id string) *Node {
	n := &Node{ID: id}
	if v, ok := r.Get("labels"); ok {
		if ls, ok := v.([]any); ok && len(ls) > 0 {
			n.Label, _ = ls[0].(string)
		}
	}
	if v, ok := r.Get("props"); ok {
		n.Props, _ = v.(map[string]any)
	}
	if n.Props == nil {
		n.Props = map[string]any{}
	}
	if pid, ok := n.Props["id"].(string); ok {
		n.ID = pid
	}
	return n
}

// idPrefixes ordnet die Präfixe der Kennungen ihren Labels zu.
var idPrefixes = []struct{ prefix, label string }{
	{"CMP_", LabelCompound},
	{"SRC_", LabelSource},
	{"TGT_", LabelTarget},
	{"SYN_", LabelSynonym},
}

// nodeMatch baut das MATCH für einen Knoten per Kennung. Ist das Label am Präfix erkennbar,
// greift der Eindeutigkeits-Index dieses Labels, sonst werden nur die bekannten Labels durchsucht.
func nodeMatch(v, id, param string) string {
	for _, p := range idPrefixes {
		if strings.HasPrefix(id, p.prefix) {
			return fmt.Sprintf("MATCH (%s:%s {id: $%s})", v, p.label, param)
		}
	}
	return fmt.Sprintf("MATCH (%[1]s) WHERE (%[1]s:%[3]s OR %[1]s:%[4]s OR %[1]s:%[5]s OR %[1]s:%[6]s) AND %[1]s.id = $%[2]s",
		v, param, LabelCompound, LabelSource, LabelTarget, LabelSynonym)
}
