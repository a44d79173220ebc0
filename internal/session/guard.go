package session

// RouteClass declares who may enter a route.
type RouteClass int

const (
	RoutePublic RouteClass = iota
	RouteStudent
	RouteAdmin
)

func (c RouteClass) String() string {
	switch c {
	case RouteStudent:
		return "student"
	case RouteAdmin:
		return "admin"
	default:
		return "public"
	}
}

// Decision is the outcome of a guard check.
type Decision int

const (
	Render Decision = iota
	Loading
	Redirect
)

func (d Decision) String() string {
	switch d {
	case Loading:
		return "loading"
	case Redirect:
		return "redirect"
	default:
		return "render"
	}
}

// Decide reports what a route of the given class should do right now. It never blocks; pair it
// with Resolver.Wait to hold a request until the relevant branch settles.
func Decide(class RouteClass, r *Resolver) Decision {
	var state State
	switch class {
	case RouteAdmin:
		state, _ = r.AdminBranch()
		if state == Admin {
			return Render
		}
	case RouteStudent:
		state, _ = r.StudentBranch()
		if state == Student {
			return Render
		}
	default:
		return Render
	}
	if state == Unresolved {
		return Loading
	}
	return Redirect
}
