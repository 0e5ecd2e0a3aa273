package builtin

import (
	"context"
	"fmt"

	"github.com/pipetrigger/pipetrigger/pkg/actions"
)

const (
	ClusterDeployID = "ibm:trigger-cluster-deploy-pipeline"
	ACEDeployID     = "ibm:trigger-ace-deploy-pipeline"
	MQBuildID       = "ibm:call-mq-build-pipeline"
	DatacapDeployID = "ibm:trigger-datacap-deploy-pipeline"

	ClusterDeployEndpoint = "http://cluster-crud-tekton.itzroks-666000qmn3-85z15f-6ccd7f378ae819553d37d5f2ee142bd6-0000.au-syd.containers.appdomain.cloud/"
	ACEDeployEndpoint     = "http://ace-create-tekton.itzroks-666000qmn3-85z15f-6ccd7f378ae819553d37d5f2ee142bd6-0000.au-syd.containers.appdomain.cloud/"
	MQBuildEndpoint       = "http://mq-create-tekton.apps.homelab.swinney.io/"
	DatacapDeployEndpoint = "http://datacap-create-tekton.apps.homelab.swinney.io"

	OutputEventID = "eventID"
)

var eventIDOutput = actions.OutputProperty{
	Name:        OutputEventID,
	Title:       "Event ID",
	Description: "Trigger event id labelling the created PipelineRun",
}

// triggerSpec describes a trigger-and-forget action.
type triggerSpec struct {
	id          string
	name        string
	description string
	endpoint    string
}

// newTriggerAction returns an action posting the payload built from its
// input of type T to the EventListener of the action.  An error building the
// payload fails the action before anything is posted.
func newTriggerAction[T any](b *Builtins, s triggerSpec, payload func(T) (any, error)) actions.Action {
	return actions.Action{
		ID:          s.id,
		Description: s.description,
		Input:       new(T),
		Output:      []actions.OutputProperty{eventIDOutput},
		Handler: func(ctx context.Context, rc *actions.Context) error {
			var in T
			if err := rc.Decode(&in); err != nil {
				return err
			}
			p, err := payload(in)
			if err != nil {
				rc.Logger.Error(err, fmt.Sprintf("Failed to run %v pipeline", s.name))
				return err
			}
			rc.Logger.Info(fmt.Sprintf("Calling %v pipeline", s.name))

			resp, err := b.trigger.Trigger(ctx, b.cfg.Endpoint(s.id, s.endpoint), p)
			if err != nil {
				rc.Logger.Error(err, fmt.Sprintf("Failed to run %v pipeline", s.name))
				return err
			}
			rc.Logger.Info("Pipeline build started successfully.", "eventID", resp.EventID)
			if resp.EventID != "" {
				rc.Output(OutputEventID, resp.EventID)
			}
			return nil
		},
	}
}

type clusterDeployInput struct {
	ClusterName   string `json:"clusterName" jsonschema:"title=Cluster Name,description=The name of the cluster to be created"`
	ClusterRegion string `json:"clusterRegion" jsonschema:"title=Cluster Region,description=Region the cluster resides within"`
	TargetCloud   string `json:"targetCloud" jsonschema:"title=Target Cloud,description=Public cloud provider to host the cluster"`
	OCPVersion    string `json:"ocpVersion" jsonschema:"title=OpenShift Version,description=OpenShift Version"`
	MultiZone     bool   `json:"multiZone" jsonschema:"title=Multi Zone,description=Whether or not the cluster uses multiple zones"`
}

// multiZone is accepted but not forwarded; the pipeline does not take it.
func (b *Builtins) clusterDeploy() actions.Action {
	return newTriggerAction(b, triggerSpec{
		id:          ClusterDeployID,
		name:        "cluster deploy",
		description: "Custom action triggering pipeline to provision a new managed cluster",
		endpoint:    ClusterDeployEndpoint,
	}, func(in clusterDeployInput) (any, error) {
		return map[string]string{
			"clusterName": in.ClusterName,
			"region":      in.ClusterRegion,
			"cloud":       in.TargetCloud,
			"version":     in.OCPVersion,
		}, nil
	})
}

type aceDeployInput struct {
	ClusterName string `json:"clusterName" jsonschema:"title=Cluster Name,description=ACE application to be deployed here"`
	GitRepo     string `json:"gitRepo" jsonschema:"title=Git Repository,description=Repository housing ACE application"`
	Barfile     string `json:"barfile" jsonschema:"title=BAR File,description=Name of BAR File"`
}

func (b *Builtins) aceDeploy() actions.Action {
	return newTriggerAction(b, triggerSpec{
		id:          ACEDeployID,
		name:        "ACE deploy",
		description: "Custom action triggering pipeline to provision an ACE application",
		endpoint:    ACEDeployEndpoint,
	}, func(in aceDeployInput) (any, error) {
		return in, validateGitURL("gitRepo", in.GitRepo)
	})
}

type mqBuildInput struct {
	ClusterName      string `json:"clusterName" jsonschema:"title=Cluster Name,description=The name of the cluster to be created"`
	Persistence      string `json:"persistence" jsonschema:"title=Persistence,description=Whether to enable persistent storage"`
	HighAvailability string `json:"highAvailability" jsonschema:"title=High Availability,description=Whether to deploy the MQ server in HA"`
}

func (b *Builtins) mqBuild() actions.Action {
	return newTriggerAction(b, triggerSpec{
		id:          MQBuildID,
		name:        "MQ build",
		description: "Custom action triggering pipeline to provision a MQ environment",
		endpoint:    MQBuildEndpoint,
	}, func(in mqBuildInput) (any, error) { return in, nil })
}

type datacapDeployInput struct {
	Cloud   string `json:"cloud" jsonschema:"title=Cloud,description=Hyperscaler"`
	Region  string `json:"region" jsonschema:"title=Region,description=Region within Hyperscaler"`
	Version string `json:"version" jsonschema:"title=Version,description=Version of DC"`
}

func (b *Builtins) datacapDeploy() actions.Action {
	return newTriggerAction(b, triggerSpec{
		id:          DatacapDeployID,
		name:        "DC deploy",
		description: "Custom action triggering pipeline to provision a DC application",
		endpoint:    DatacapDeployEndpoint,
	}, func(in datacapDeployInput) (any, error) { return in, nil })
}
