package ast

// Walk visits n and every node reachable from it, in source order, calling
// fn on each.
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	switch x := n.(type) {
	case *Program:
		for _, s := range x.Statements {
			Walk(s, fn)
		}
	case *ArrayLiteral:
		for _, el := range x.Elements {
			if el != nil {
				Walk(el, fn)
			}
		}
	case *ObjectLiteral:
		for _, p := range x.Properties {
			Walk(p.Key, fn)
			Walk(p.Value, fn)
		}
	case *FunctionLiteral:
		if x.Name != nil {
			Walk(x.Name, fn)
		}
		for _, p := range x.Params {
			Walk(p, fn)
		}
		Walk(x.Body, fn)
	case *AssignmentExpression:
		Walk(x.Target, fn)
		Walk(x.Value, fn)
	case *UpdateExpression:
		Walk(x.Argument, fn)
	case *UnaryExpression:
		Walk(x.Argument, fn)
	case *BinaryExpression:
		Walk(x.Left, fn)
		Walk(x.Right, fn)
	case *LogicalExpression:
		Walk(x.Left, fn)
		Walk(x.Right, fn)
	case *ConditionalExpression:
		Walk(x.Test, fn)
		Walk(x.Consequent, fn)
		Walk(x.Alternate, fn)
	case *CallExpression:
		Walk(x.Callee, fn)
		for _, a := range x.Arguments {
			Walk(a, fn)
		}
	case *NewExpression:
		Walk(x.Callee, fn)
		for _, a := range x.Arguments {
			Walk(a, fn)
		}
	case *MemberExpression:
		Walk(x.Object, fn)
		Walk(x.Property, fn)
	case *SequenceExpression:
		for _, e := range x.Expressions {
			Walk(e, fn)
		}
	case *VariableDeclaration:
		for _, d := range x.Declarators {
			Walk(d.Name, fn)
			if d.Init != nil {
				Walk(d.Init, fn)
			}
		}
	case *FunctionDeclaration:
		Walk(x.Function, fn)
	case *ExpressionStatement:
		Walk(x.Expression, fn)
	case *BlockStatement:
		for _, s := range x.Statements {
			Walk(s, fn)
		}
	case *IfStatement:
		Walk(x.Test, fn)
		Walk(x.Consequent, fn)
		if x.Alternate != nil {
			Walk(x.Alternate, fn)
		}
	case *WhileStatement:
		Walk(x.Test, fn)
		Walk(x.Body, fn)
	case *DoWhileStatement:
		Walk(x.Body, fn)
		Walk(x.Test, fn)
	case *ForStatement:
		if x.Init != nil {
			Walk(x.Init, fn)
		}
		if x.Test != nil {
			Walk(x.Test, fn)
		}
		if x.Update != nil {
			Walk(x.Update, fn)
		}
		Walk(x.Body, fn)
	case *ForInStatement:
		Walk(x.Left, fn)
		Walk(x.Right, fn)
		Walk(x.Body, fn)
	case *ForOfStatement:
		Walk(x.Left, fn)
		Walk(x.Right, fn)
		Walk(x.Body, fn)
	case *SwitchStatement:
		Walk(x.Discriminant, fn)
		for _, c := range x.Cases {
			if c.Test != nil {
				Walk(c.Test, fn)
			}
			for _, s := range c.Body {
				Walk(s, fn)
			}
		}
	case *ReturnStatement:
		if x.Argument != nil {
			Walk(x.Argument, fn)
		}
	case *ThrowStatement:
		Walk(x.Argument, fn)
	case *TryStatement:
		Walk(x.Block, fn)
		if x.CatchParam != nil {
			Walk(x.CatchParam, fn)
		}
		if x.Handler != nil {
			Walk(x.Handler, fn)
		}
		if x.Finalizer != nil {
			Walk(x.Finalizer, fn)
		}
	case *LabeledStatement:
		Walk(x.Label, fn)
		Walk(x.Body, fn)
	}
}
