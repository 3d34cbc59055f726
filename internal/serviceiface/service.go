package serviceiface

// Service is the unit managed by the app manager. Services are started in
// the order given by services.yaml and stopped in reverse.
type Service interface {
	Name() string
	Start() error
	Stop() error
}
