package translator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/objgraph/internal/exp"
	"github.com/roach88/objgraph/internal/object"
	"github.com/roach88/objgraph/internal/schema"
)

// frame is one expression on the walk stack.
type frame struct {
	node   *exp.Expression
	parens bool
}

// QualifierTranslator renders a qualifier as a WHERE clause body.
//
// It implements exp.TraversalHandler. Literals become "?" placeholders and
// are appended to the assembler's parameter list in placeholder order.
type QualifierTranslator struct {
	assembler       *QueryAssembler
	caseInsensitive bool

	out   *strings.Builder
	stack []frame

	matchingObject bool
	match          *ObjectMatchTranslator
}

// NewQualifierTranslator returns a translator writing through a.
func NewQualifierTranslator(a *QueryAssembler) *QualifierTranslator {
	return &QualifierTranslator{assembler: a, match: NewObjectMatchTranslator()}
}

// SetCaseInsensitive renders the ignore-case LIKE variants as plain LIKE,
// for databases that compare case-insensitively anyway.
func (t *QualifierTranslator) SetCaseInsensitive(on bool) { t.caseInsensitive = on }

// Translate renders q. A nil q renders as "".
func (t *QualifierTranslator) Translate(q *exp.Expression) (string, error) {
	if q == nil {
		return "", nil
	}
	if err := q.Validate(); err != nil {
		return "", err
	}

	t.out = &strings.Builder{}
	t.stack = t.stack[:0]
	t.matchingObject = false
	t.match.Reset()
	t.assembler.AddPathAliases(q.CollectAliases())

	if err := q.Traverse(t); err != nil {
		return "", fmt.Errorf("translate %s: %w", q, err)
	}
	return t.out.String(), nil
}

// AppendQualifier renders q ANDed with the qualifiers every query on the
// root entity carries.
func (t *QualifierTranslator) AppendQualifier(q *exp.Expression) (string, error) {
	return t.Translate(t.ExtractQualifier(q))
}

// ExtractQualifier ANDs q with the inheritance qualifier of the root entity
// and its subentities, and with the root table's qualifier. Object paths in
// the table qualifier are read as db paths.
func (t *QualifierTranslator) ExtractQualifier(q *exp.Expression) *exp.Expression {
	qualifier := q
	if root := t.assembler.RootEntity(); root != nil {
		if entityQualifier := root.QualifierForEntityAndSubclasses(); entityQualifier != nil {
			qualifier = andExp(qualifier, entityQualifier)
		}
	}
	if db := t.assembler.RootDbEntity(); db != nil && db.Qualifier != nil {
		dbQualifier := db.Qualifier.Transform(func(node *exp.Expression) *exp.Expression {
			if node.Type() != exp.ObjPath {
				return node
			}
			path := exp.NewDbPath(node.Path())
			path.SetPathAliases(node.PathAliases())
			return path
		})
		qualifier = andExp(qualifier, dbQualifier)
	}
	return qualifier
}

func andExp(a, b *exp.Expression) *exp.Expression {
	if a == nil {
		return b
	}
	return a.AndExp(b)
}

func (t *QualifierTranslator) StartNode(node, parent *exp.Expression) error {
	if node.OperandCount() == 2 {
		t.detectObjectMatch(node)
	}

	parens := t.parenthesisNeeded(node, parent)
	t.stack = append(t.stack, frame{node: node, parens: parens})
	if parens {
		t.out.WriteByte('(')
	}

	switch node.Type() {
	case exp.True:
		// not every database has boolean literals
		t.out.WriteString("1 = 1")
	case exp.False:
		t.out.WriteString("1 = 0")
	case exp.Negative:
		t.out.WriteByte('-')
	case exp.Not:
		t.out.WriteString("NOT ")
	case exp.BitwiseNot:
		t.out.WriteByte('~')
	case exp.LikeIgnoreCase, exp.NotLikeIgnoreCase:
		if !t.caseInsensitive {
			t.out.WriteString("UPPER(")
		}
	}
	return nil
}

func (t *QualifierTranslator) FinishedChild(node *exp.Expression, childIndex int, hasMoreChildren bool) error {
	if !hasMoreChildren {
		return nil
	}
	token, err := t.infixToken(node, childIndex)
	if err != nil {
		return err
	}
	if t.matchingObject {
		// the token goes between every expanded column and its value
		t.match.SetOperation(token)
		t.match.SetExpression(node)
		return nil
	}
	t.out.WriteString(token)
	return nil
}

// infixToken returns the token written after operand childIndex of node.
func (t *QualifierTranslator) infixToken(node *exp.Expression, childIndex int) (string, error) {
	switch node.Type() {
	case exp.And:
		return " AND ", nil
	case exp.Or:
		return " OR ", nil
	case exp.EqualTo:
		if childIndex == 0 && isNull(node.Operand(1)) {
			return " IS ", nil
		}
		return " = ", nil
	case exp.NotEqualTo:
		if childIndex == 0 && isNull(node.Operand(1)) {
			return " IS NOT ", nil
		}
		return " <> ", nil
	case exp.LessThan:
		return " < ", nil
	case exp.GreaterThan:
		return " > ", nil
	case exp.LessThanEqualTo:
		return " <= ", nil
	case exp.GreaterThanEqualTo:
		return " >= ", nil
	case exp.In:
		return " IN ", nil
	case exp.NotIn:
		return " NOT IN ", nil
	case exp.Like:
		return " LIKE ", nil
	case exp.NotLike:
		return " NOT LIKE ", nil
	case exp.LikeIgnoreCase:
		if t.caseInsensitive {
			return " LIKE ", nil
		}
		return ") LIKE UPPER(", nil
	case exp.NotLikeIgnoreCase:
		if t.caseInsensitive {
			return " NOT LIKE ", nil
		}
		return ") NOT LIKE UPPER(", nil
	case exp.Add:
		return " + ", nil
	case exp.Subtract:
		return " - ", nil
	case exp.Multiply:
		return " * ", nil
	case exp.Divide:
		return " / ", nil
	case exp.Between:
		if childIndex == 0 {
			return " BETWEEN ", nil
		}
		return " AND ", nil
	case exp.NotBetween:
		if childIndex == 0 {
			return " NOT BETWEEN ", nil
		}
		return " AND ", nil
	case exp.BitwiseOr:
		return " | ", nil
	case exp.BitwiseAnd:
		return " & ", nil
	case exp.BitwiseXor:
		return " ^ ", nil
	case exp.BitwiseLeftShift:
		return " << ", nil
	case exp.BitwiseRightShift:
		return " >> ", nil
	case exp.Not, exp.Negative, exp.BitwiseNot, exp.ObjPath, exp.DbPath, exp.List, exp.True, exp.False:
		// unary and leaf nodes have no infix
		return "", nil
	case exp.Positive, exp.All, exp.Some, exp.Any:
		return "", fmt.Errorf("%w: %s", exp.ErrInvalidExpressionType, node.Type())
	}
	return "", fmt.Errorf("%w: %s", exp.ErrInvalidExpressionType, node.Type())
}

func (t *QualifierTranslator) EndNode(node, parent *exp.Expression) error {
	if node.OperandCount() == 2 && t.matchingObject {
		if err := t.appendObjectMatch(); err != nil {
			return err
		}
	}

	top := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]

	if (node.Type() == exp.LikeIgnoreCase || node.Type() == exp.NotLikeIgnoreCase) && !t.caseInsensitive {
		t.out.WriteByte(')')
	}
	if node.Type().IsPatternMatch() {
		if err := t.appendLikeEscapeCharacter(node); err != nil {
			return err
		}
	}
	if top.parens {
		t.out.WriteByte(')')
	}
	return nil
}

func (t *QualifierTranslator) ObjectNode(leaf any, parent *exp.Expression) error {
	switch parent.Type() {
	case exp.ObjPath:
		return t.appendObjPath(parent)
	case exp.DbPath:
		return t.appendDbPath(parent)
	case exp.List:
		return t.appendList(leaf, t.paramsDbType(parent))
	default:
		return t.appendLiteral(leaf, t.paramsDbType(parent))
	}
}

// parenthesisNeeded leaves the root, paths and predicates directly under
// AND/OR bare. An object match under OR may expand into several ANDed
// clauses and keeps its parentheses.
func (t *QualifierTranslator) parenthesisNeeded(node, parent *exp.Expression) bool {
	if parent == nil {
		return false
	}
	if node.Type().IsPath() {
		return false
	}
	if parent.Type().IsLogical() && node.Type().IsPredicate() {
		return t.matchingObject && parent.Type() == exp.Or
	}
	return true
}

// detectObjectMatch switches to object match mode when either operand of a
// binary node is a persistent object or an ObjectID.
func (t *QualifierTranslator) detectObjectMatch(node *exp.Expression) {
	t.matchingObject = false
	for i := 0; i < 2; i++ {
		switch node.Operand(i).(type) {
		case object.Persistent, *object.ObjectID:
			t.matchingObject = true
			t.match.Reset()
			return
		}
	}
}

func (t *QualifierTranslator) appendObjectMatch() error {
	t.matchingObject = false

	keys, err := t.match.Keys()
	if err != nil {
		return err
	}
	rel := t.match.Relationship()
	if !rel.ToMany && !rel.IsToPK() {
		t.assembler.DbRelationshipAdded(rel, schema.JoinInner, t.match.JoinSplitAlias())
	}

	for i, key := range keys {
		if i > 0 {
			t.out.WriteString(" AND ")
		}
		attr := t.match.Attribute(key)
		value := t.match.Value(key)
		t.processColumn(attr)
		t.out.WriteString(nullAwareOperation(t.match.Operation(), value))
		if err := t.appendLiteral(value, attr); err != nil {
			return err
		}
	}
	t.match.Reset()
	return nil
}

// nullAwareOperation turns equality with NULL into IS / IS NOT.
func nullAwareOperation(op string, value any) string {
	if value != nil {
		return op
	}
	switch op {
	case " = ":
		return " IS "
	case " <> ":
		return " IS NOT "
	}
	return op
}

func (t *QualifierTranslator) appendLikeEscapeCharacter(node *exp.Expression) error {
	c, ok := node.EscapeChar()
	if !ok {
		return nil
	}
	if c == '?' {
		return ErrIllegalEscapeChar
	}
	t.out.WriteString(t.assembler.Adapter().LikeEscapeClause(c))
	return nil
}

func (t *QualifierTranslator) appendObjPath(pathExp *exp.Expression) error {
	a := t.assembler
	a.ResetJoinStack()
	root := a.RootEntity()
	if root == nil {
		return fmt.Errorf("%w: object path %q without a root entity", ErrUnsupportedPath, pathExp.Path())
	}
	components, err := root.ResolvePath(pathExp.Path(), a.PathAliases())
	if err != nil {
		return err
	}

	joinSplitAlias := ""
	for _, component := range components {
		if component.IsAlias() {
			joinSplitAlias = component.Name
			for _, part := range component.AliasedPath {
				if part.Last && component.Last {
					if err := t.processObjRelTermination(part.Relationship, part.JoinType, joinSplitAlias); err != nil {
						return err
					}
					continue
				}
				if err := t.addObjRelationship(part.Relationship, part.JoinType, joinSplitAlias); err != nil {
					return err
				}
			}
			continue
		}

		if rel := component.Relationship; rel != nil {
			if component.Last {
				if err := t.processObjRelTermination(rel, component.JoinType, joinSplitAlias); err != nil {
					return err
				}
				continue
			}
			if err := t.addObjRelationship(rel, component.JoinType, joinSplitAlias); err != nil {
				return err
			}
			continue
		}

		dbPath, err := component.Attribute.DbPathComponents()
		if err != nil {
			return err
		}
		for _, part := range dbPath {
			if part.Relationship != nil {
				a.DbRelationshipAdded(part.Relationship, schema.JoinInner, joinSplitAlias)
				continue
			}
			t.processColumn(part.Attribute)
		}
	}
	return nil
}

func (t *QualifierTranslator) addObjRelationship(rel *schema.ObjRelationship, joinType schema.JoinType, joinSplitAlias string) error {
	dbRels := rel.DbRelationships()
	if dbRels == nil {
		return fmt.Errorf("%w: %s.%s has no db relationships", ErrUnsupportedPath, rel.SourceEntity().Name, rel.Name)
	}
	for _, dbRel := range dbRels {
		t.assembler.DbRelationshipAdded(dbRel, joinType, joinSplitAlias)
	}
	return nil
}

func (t *QualifierTranslator) appendDbPath(pathExp *exp.Expression) error {
	a := t.assembler
	a.ResetJoinStack()
	if a.RootDbEntity() == nil {
		return fmt.Errorf("%w: db path %q without a root table", ErrUnsupportedPath, pathExp.Path())
	}
	components, err := a.RootDbEntity().ResolvePath(pathExp.Path(), a.PathAliases())
	if err != nil {
		return err
	}

	joinSplitAlias := ""
	for _, component := range components {
		if component.IsAlias() {
			joinSplitAlias = component.Name
			for _, part := range component.AliasedPath {
				if part.Last && component.Last {
					if err := t.processRelTermination(part.Relationship, part.JoinType, joinSplitAlias); err != nil {
						return err
					}
					continue
				}
				a.DbRelationshipAdded(part.Relationship, component.JoinType, joinSplitAlias)
			}
			continue
		}

		if rel := component.Relationship; rel != nil {
			if component.Last {
				if err := t.processRelTermination(rel, component.JoinType, joinSplitAlias); err != nil {
					return err
				}
				continue
			}
			a.DbRelationshipAdded(rel, component.JoinType, joinSplitAlias)
			continue
		}
		t.processColumn(component.Attribute)
	}
	return nil
}

func (t *QualifierTranslator) processColumn(attr *schema.DbAttribute) {
	t.out.WriteString(t.assembler.currentColumn(attr))
}

// processObjRelTermination joins every db relationship of rel but the last
// and terminates the path on the last.
func (t *QualifierTranslator) processObjRelTermination(rel *schema.ObjRelationship, joinType schema.JoinType, joinSplitAlias string) error {
	dbRels := rel.DbRelationships()
	if len(dbRels) == 0 {
		return fmt.Errorf("%w: %s.%s has no db relationships", ErrUnsupportedPath, rel.SourceEntity().Name, rel.Name)
	}
	for _, dbRel := range dbRels[:len(dbRels)-1] {
		t.assembler.DbRelationshipAdded(dbRel, joinType, joinSplitAlias)
	}
	return t.processRelTermination(dbRels[len(dbRels)-1], joinType, joinSplitAlias)
}

// processRelTermination renders a path ending in a relationship. A to-one
// renders its foreign key column; a to-many joins the target and renders
// its key column. In object match mode the relationship is handed to the
// match translator instead.
func (t *QualifierTranslator) processRelTermination(rel *schema.DbRelationship, joinType schema.JoinType, joinSplitAlias string) error {
	if rel.ToMany {
		t.assembler.DbRelationshipAdded(rel, joinType, joinSplitAlias)
	}
	if t.matchingObject {
		t.match.SetRelationship(rel, joinSplitAlias)
		return nil
	}

	joins := rel.Joins()
	if len(joins) != 1 {
		return fmt.Errorf("%w: relationship paths are only supported for single-join relationships, %s has %d joins",
			ErrUnsupportedPath, rel.Name, len(joins))
	}

	attr := joins[0].Source()
	if rel.ToMany {
		pks := rel.TargetEntity().PrimaryKeys()
		if len(pks) != 1 {
			return fmt.Errorf("%w: to-many paths need a single column key, %s has %d",
				ErrUnsupportedPath, rel.TargetEntity().Name, len(pks))
		}
		attr = pks[0]
	}
	t.processColumn(attr)
	return nil
}

func (t *QualifierTranslator) appendList(list any, attr *schema.DbAttribute) error {
	rv := reflect.ValueOf(list)
	if list == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return fmt.Errorf("%w: %T", ErrUnsupportedListOperand, list)
	}
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			t.out.WriteString(", ")
		}
		if err := t.appendLiteral(rv.Index(i).Interface(), attr); err != nil {
			return err
		}
	}
	return nil
}

func (t *QualifierTranslator) appendLiteral(value any, attr *schema.DbAttribute) error {
	if t.matchingObject {
		switch v := value.(type) {
		case nil:
			return t.match.SetDataObject(nil)
		case object.Persistent:
			return t.match.SetDataObject(v)
		case *object.ObjectID:
			return t.match.SetObjectID(v)
		default:
			return fmt.Errorf("%w: %T", ErrInvalidLiteral, value)
		}
	}

	switch v := value.(type) {
	case nil:
		t.out.WriteString("NULL")
		return nil
	case object.Persistent:
		id := v.ObjectID()
		if id == nil {
			return ErrTransientObject
		}
		return t.appendIDLiteral(id, attr)
	case *object.ObjectID:
		if v == nil {
			return ErrTransientObject
		}
		return t.appendIDLiteral(v, attr)
	}
	t.appendLiteralDirect(value, attr)
	return nil
}

// appendIDLiteral binds the single key value of id.
func (t *QualifierTranslator) appendIDLiteral(id *object.ObjectID, attr *schema.DbAttribute) error {
	value, err := id.SingleValue()
	if err != nil {
		return err
	}
	t.appendLiteralDirect(value, attr)
	return nil
}

func (t *QualifierTranslator) appendLiteralDirect(value any, attr *schema.DbAttribute) {
	t.out.WriteByte('?')
	t.assembler.AddToParamList(attr, value)
}

// paramsDbType finds the column a literal operand of e is compared with,
// from a path sibling. Unary nodes such as LIST ask their parent.
func (t *QualifierTranslator) paramsDbType(e *exp.Expression) *schema.DbAttribute {
	if e.OperandCount() < 2 {
		if parent := t.parentOf(e); parent != nil {
			return t.paramsDbType(parent)
		}
		return nil
	}

	var rel *schema.DbRelationship
	for i := 0; i < e.OperandCount(); i++ {
		child, ok := e.Operand(i).(*exp.Expression)
		if !ok || child == nil {
			continue
		}
		switch child.Type() {
		case exp.ObjPath:
			root := t.assembler.RootEntity()
			if root == nil {
				continue
			}
			last, err := root.LastPathComponent(child.Path(), t.assembler.PathAliases())
			if err != nil {
				continue
			}
			if last.Attribute != nil {
				return last.Attribute.DbAttribute()
			}
			if dbRels := last.Relationship.DbRelationships(); len(dbRels) > 0 {
				rel = dbRels[len(dbRels)-1]
			}
		case exp.DbPath:
			if t.assembler.RootDbEntity() == nil {
				continue
			}
			last, err := t.assembler.RootDbEntity().LastPathComponent(child.Path(), t.assembler.PathAliases())
			if err != nil {
				continue
			}
			if last.Attribute != nil {
				return last.Attribute
			}
			rel = last.Relationship
		}
		if rel != nil {
			break
		}
	}

	if rel != nil && len(rel.Joins()) == 1 {
		return rel.Joins()[0].Source()
	}
	return nil
}

// parentOf returns the node e is an operand of, from the walk stack.
func (t *QualifierTranslator) parentOf(e *exp.Expression) *exp.Expression {
	for i := len(t.stack) - 1; i > 0; i-- {
		if t.stack[i].node == e {
			return t.stack[i-1].node
		}
	}
	return nil
}

// isNull reports whether op is a null literal, including a typed nil
// sub-expression.
func isNull(op any) bool {
	if op == nil {
		return true
	}
	e, ok := op.(*exp.Expression)
	return ok && e == nil
}
