package system

import "github.com/go-gl/mathgl/mgl64"

// Option edits a copy of a System inside With.
type Option func(*System)

// With returns a new System with the options applied and re-validated.
// Slices that no option touches are shared with s.
func (s *System) With(opts ...Option) (*System, error) {
	c := *s
	for _, opt := range opts {
		opt(&c)
	}
	if err := c.derive(); err != nil {
		return nil, err
	}
	return &c, nil
}

func WithDt(dt float64) Option {
	return func(s *System) { s.params.Dt = dt }
}

func WithGravity(g mgl64.Vec3) Option {
	return func(s *System) { s.params.Gravity = g }
}

func WithSolverIterations(n int) Option {
	return func(s *System) { s.params.SolverIterations = n }
}

func WithCollideScale(scale float64) Option {
	return func(s *System) { s.params.CollideScale = scale }
}

func WithAngDamping(d float64) Option {
	return func(s *System) { s.params.AngDamping = d }
}

func WithContactMargin(m float64) Option {
	return func(s *System) { s.params.ContactMargin = m }
}

// WithConstraintLimitStiffness sets the limit stiffness of every link.
func WithConstraintLimitStiffness(k float64) Option {
	return editLinks(func(l *Link) { l.ConstraintLimitStiffness = k })
}

// WithConstraintAngDamping sets the joint angular damping of every link.
func WithConstraintAngDamping(d float64) Option {
	return editLinks(func(l *Link) { l.ConstraintAngDamping = d })
}

// WithJointDamping sets the viscous damping of every joint dof.
func WithJointDamping(d float64) Option {
	return editLinks(func(l *Link) {
		l.Joint.DOFs = append([]DOF(nil), l.Joint.DOFs...)
		for k := range l.Joint.DOFs {
			l.Joint.DOFs[k].Damping = d
		}
	})
}

func editLinks(fn func(*Link)) Option {
	return func(s *System) {
		links := make([]Link, len(s.links))
		copy(links, s.links)
		for i := range links {
			fn(&links[i])
		}
		s.links = links
	}
}
