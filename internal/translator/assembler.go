package translator

import (
	"maps"
	"strconv"
	"strings"

	"github.com/roach88/objgraph/internal/dbadapter"
	"github.com/roach88/objgraph/internal/schema"
)

// rootAlias is the alias of the statement's root table.
const rootAlias = "t0"

// joinNode is one joined table. Nodes are shared between paths that walk
// the same relationship with the same join type and split alias.
type joinNode struct {
	rel        *schema.DbRelationship
	joinType   schema.JoinType
	splitAlias string
	alias      string
	children   []*joinNode
}

func (n *joinNode) table() *schema.DbEntity {
	return n.rel.TargetEntity()
}

// joinStack is the join tree of one statement plus a cursor that path
// translation moves from the root towards the path's last table.
type joinStack struct {
	root    *joinNode
	top     *joinNode
	counter int
}

func newJoinStack() *joinStack {
	root := &joinNode{alias: rootAlias}
	return &joinStack{root: root, top: root, counter: 1}
}

func (s *joinStack) reset() { s.top = s.root }

func (s *joinStack) push(rel *schema.DbRelationship, joinType schema.JoinType, splitAlias string) {
	for _, child := range s.top.children {
		if child.rel == rel && child.joinType == joinType && child.splitAlias == splitAlias {
			s.top = child
			return
		}
	}
	child := &joinNode{
		rel:        rel,
		joinType:   joinType,
		splitAlias: splitAlias,
		alias:      "t" + strconv.Itoa(s.counter),
	}
	s.counter++
	s.top.children = append(s.top.children, child)
	s.top = child
}

func (s *joinStack) size() int { return s.counter - 1 }

// QueryAssembler holds the state shared by the translators of one
// statement.
type QueryAssembler struct {
	adapter      dbadapter.DbAdapter
	root         *schema.ObjEntity
	rootDb       *schema.DbEntity
	tableAliases bool
	tableNames   bool

	pathAliases     map[string]string
	joins           *joinStack
	params          []dbadapter.ParameterBinding
	forcingDistinct bool
}

// NewQueryAssembler returns an assembler rooted at an object entity.
// Table aliases are on.
func NewQueryAssembler(adapter dbadapter.DbAdapter, root *schema.ObjEntity) *QueryAssembler {
	a := NewDbQueryAssembler(adapter, root.DbEntity())
	a.root = root
	return a
}

// NewDbQueryAssembler returns an assembler rooted at a table. Object paths
// can't be translated through it.
func NewDbQueryAssembler(adapter dbadapter.DbAdapter, root *schema.DbEntity) *QueryAssembler {
	return &QueryAssembler{
		adapter:      adapter,
		rootDb:       root,
		tableAliases: true,
		pathAliases:  make(map[string]string),
		joins:        newJoinStack(),
	}
}

// SetTableAliases turns table aliases on or off. Without aliases columns
// are rendered unqualified unless SetTableNames is on.
func (a *QueryAssembler) SetTableAliases(on bool) { a.tableAliases = on }

// SetTableNames qualifies columns with table names when aliases are off.
// Statements with joins need it.
func (a *QueryAssembler) SetTableNames(on bool) { a.tableNames = on }

// SupportsTableAliases reports whether columns are alias-qualified.
func (a *QueryAssembler) SupportsTableAliases() bool { return a.tableAliases }

func (a *QueryAssembler) Adapter() dbadapter.DbAdapter { return a.adapter }

// RootEntity returns the root object entity, or nil for a table-rooted
// assembler.
func (a *QueryAssembler) RootEntity() *schema.ObjEntity { return a.root }

func (a *QueryAssembler) RootDbEntity() *schema.DbEntity { return a.rootDb }

// AddPathAliases registers split aliases used by the qualifier.
func (a *QueryAssembler) AddPathAliases(aliases map[string]string) {
	maps.Copy(a.pathAliases, aliases)
}

func (a *QueryAssembler) PathAliases() map[string]string { return a.pathAliases }

// ResetJoinStack moves the join cursor back to the root table. Every path
// starts with a reset.
func (a *QueryAssembler) ResetJoinStack() { a.joins.reset() }

// DbRelationshipAdded joins the target of rel to the table under the
// cursor, reusing an existing join when one matches, and moves the cursor
// to it. A to-many join forces DISTINCT.
func (a *QueryAssembler) DbRelationshipAdded(rel *schema.DbRelationship, joinType schema.JoinType, splitAlias string) {
	if rel.ToMany {
		a.forcingDistinct = true
	}
	a.joins.push(rel, joinType, splitAlias)
}

// CurrentAlias returns the qualifier of the table under the join cursor:
// its alias, its table name, or "" with neither.
func (a *QueryAssembler) CurrentAlias() string {
	if a.tableAliases {
		return a.joins.top.alias
	}
	if !a.tableNames {
		return ""
	}
	if a.joins.top == a.joins.root {
		return a.adapter.QuoteTable(a.rootDb)
	}
	return a.adapter.QuoteTable(a.joins.top.table())
}

// HasJoins reports whether any table was joined.
func (a *QueryAssembler) HasJoins() bool { return a.joins.size() > 0 }

// IsForcingDistinct reports whether a to-many join was added.
func (a *QueryAssembler) IsForcingDistinct() bool { return a.forcingDistinct }

// AddToParamList appends a parameter typed after attr. attr may be nil.
func (a *QueryAssembler) AddToParamList(attr *schema.DbAttribute, value any) {
	a.params = append(a.params, dbadapter.NewBinding(value, attr))
}

// Params returns the parameters in placeholder order.
func (a *QueryAssembler) Params() []dbadapter.ParameterBinding { return a.params }

// column renders attr qualified with alias.
func (a *QueryAssembler) column(alias string, attr *schema.DbAttribute) string {
	name := a.adapter.QuoteIdentifier(attr.Name)
	if alias == "" {
		return name
	}
	return alias + "." + name
}

// currentColumn renders attr of the table under the join cursor.
func (a *QueryAssembler) currentColumn(attr *schema.DbAttribute) string {
	return a.column(a.CurrentAlias(), attr)
}

// rootColumn renders attr of the root table.
func (a *QueryAssembler) rootColumn(attr *schema.DbAttribute) string {
	switch {
	case a.tableAliases:
		return a.column(rootAlias, attr)
	case a.tableNames:
		return a.column(a.adapter.QuoteTable(a.rootDb), attr)
	default:
		return a.column("", attr)
	}
}

// appendFrom writes the root table and every join.
func (a *QueryAssembler) appendFrom(sb *strings.Builder) {
	sb.WriteString(a.adapter.QuoteTable(a.rootDb))
	if a.tableAliases {
		sb.WriteString(" " + rootAlias)
	}
	a.appendJoins(sb, a.joins.root)
}

func (a *QueryAssembler) appendJoins(sb *strings.Builder, node *joinNode) {
	for _, child := range node.children {
		sourceAlias, targetAlias := node.alias, child.alias
		if !a.tableAliases {
			// qualify with table names instead
			sourceAlias = a.adapter.QuoteTable(child.rel.SourceEntity())
			targetAlias = a.adapter.QuoteTable(child.table())
		}

		sb.WriteString(" " + child.joinType.String() + " ")
		sb.WriteString(a.adapter.QuoteTable(child.table()))
		if a.tableAliases {
			sb.WriteString(" " + child.alias)
		}
		sb.WriteString(" ON (")
		for i, j := range child.rel.Joins() {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			sb.WriteString(a.column(sourceAlias, j.Source()))
			sb.WriteString(" = ")
			sb.WriteString(a.column(targetAlias, j.Target()))
		}
		sb.WriteString(")")

		a.appendJoins(sb, child)
	}
}
