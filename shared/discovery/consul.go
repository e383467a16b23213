package discovery

import (
	"fmt"

	"github.com/hashicorp/consul/api"
)

// ConsulRegistrar registers a single service instance with the local Consul agent.
type ConsulRegistrar struct {
	client    *api.Client
	serviceID string
}

// Registration describes the service instance to register.
type Registration struct {
	Name      string
	Host      string
	Port      int
	HealthURL string
	Tags      []string
}

// NewConsulRegistrar creates a registrar against the Consul agent at addr.
func NewConsulRegistrar(addr string) (*ConsulRegistrar, error) {
	cfg := api.DefaultConfig()
	cfg.Address = addr

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return &ConsulRegistrar{client: client}, nil
}

// Register adds the service with an HTTP health check.
func (r *ConsulRegistrar) Register(reg Registration) error {
	r.serviceID = fmt.Sprintf("%s-%s-%d", reg.Name, reg.Host, reg.Port)

	return r.client.Agent().ServiceRegister(&api.AgentServiceRegistration{
		ID:      r.serviceID,
		Name:    reg.Name,
		Address: reg.Host,
		Port:    reg.Port,
		Tags:    reg.Tags,
		Check: &api.AgentServiceCheck{
			HTTP:                           reg.HealthURL,
			Interval:                       "10s",
			Timeout:                        "2s",
			DeregisterCriticalServiceAfter: "1m",
		},
	})
}

// Deregister removes the previously registered service.
func (r *ConsulRegistrar) Deregister() error {
	if r.serviceID == "" {
		return nil
	}
	return r.client.Agent().ServiceDeregister(r.serviceID)
}
