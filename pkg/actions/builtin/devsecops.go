package builtin

import (
	"context"
	"errors"
	"fmt"

	"github.com/pipetrigger/pipetrigger/pkg/actions"
	"github.com/pipetrigger/pipetrigger/pkg/imagecontext"
	"github.com/pipetrigger/pipetrigger/pkg/notify"
)

const (
	DevSecOpsID = "ibm:trigger-devsecops-pipeline"

	// DevSecOpsEndpoint is the in cluster EventListener service.
	DevSecOpsEndpoint = "http://el-backstage-cr.tekton.svc.cluster.local:8080"
	// DevSecOpsDevelopmentHost is prefixed to the OpenShift base domain in
	// development.
	DevSecOpsDevelopmentHost = "ryu-test-backstage"

	OutputImageReference = "imageReference"
	OutputImageSha       = "imageSha"
	OutputImageDigest    = "imageDigest"
	OutputPipelineRun    = "pipelineRun"
	OutputNamespace      = "namespace"
)

var ErrNoEventID = errors.New("event listener did not report an event id")

type devSecOpsInput struct {
	RepoURL         string `json:"repoURL" jsonschema:"title=Target repo URL,description=The URL of the repo containing your Custom Resources"`
	DeveloperName   string `json:"developerName" jsonschema:"title=Developer Name,description=The developer name to associate resources with"`
	TargetEnv       string `json:"targetEnv" jsonschema:"title=Target Environment,description=The Cloud Environment to Deploy in,enum=AWS,enum=Azure,enum=GCP,enum=IBM Cloud"`
	ApplicationName string `json:"applicationName" jsonschema:"title=Deployed Application Name,description=The name for the deployed application"`
}

// devSecOpsEndpoint returns the EventListener route of the DevSecOps
// pipeline for the configured environment.
func (b *Builtins) devSecOpsEndpoint() string {
	dflt := DevSecOpsEndpoint
	if b.cfg.IsDevelopment() {
		dflt = fmt.Sprintf("http://%v.%v", DevSecOpsDevelopmentHost, b.cfg.BaseDomain())
	}
	return b.cfg.Endpoint(DevSecOpsID, dflt)
}

func (b *Builtins) devSecOps() actions.Action {
	return actions.Action{
		ID:          DevSecOpsID,
		Description: "Custom action building a developer application with the DevSecOps pipeline and reporting the built image",
		Input:       &devSecOpsInput{},
		Output: []actions.OutputProperty{
			{Name: OutputImageReference, Title: "Image Reference", Description: "Image registry url for the developer's app image"},
			{Name: OutputImageSha, Title: "Image SHA", Description: "Image digest (SHA) of the developer's app image"},
			{Name: OutputImageDigest, Title: "Image Digest", Description: "Same as imageSha"},
			{Name: OutputPipelineRun, Title: "PipelineRun", Description: "Name of the PipelineRun which built the image"},
			{Name: OutputNamespace, Title: "Namespace", Description: "Namespace of the PipelineRun"},
		},
		Handler: b.runDevSecOps,
	}
}

func (b *Builtins) runDevSecOps(ctx context.Context, rc *actions.Context) error {
	in := devSecOpsInput{}
	if err := rc.Decode(&in); err != nil {
		return err
	}
	log := rc.Logger
	fail := func(err error) error {
		log.Error(err, fmt.Sprintf("Failed to run DevSecOps pipeline for deployment %v", in.ApplicationName))
		return err
	}

	if err := validateGitURL("repoURL", in.RepoURL); err != nil {
		return fail(err)
	}

	log.Info("Calling build pipeline")
	resp, err := b.trigger.Trigger(ctx, b.devSecOpsEndpoint(), map[string]string{
		"applicationName": in.ApplicationName,
		"targetEnv":       in.TargetEnv,
		"repoURL":         in.RepoURL,
		"developerName":   in.DeveloperName,
	})
	if err != nil {
		return fail(err)
	}
	log.Info("Pipeline build started successfully.", "eventID", resp.EventID)
	if resp.EventID == "" {
		return fail(ErrNoEventID)
	}

	pr, err := b.watcher.WaitForPipelineRunStart(ctx, resp.EventID)
	if err != nil {
		return fail(err)
	}
	log.Info(fmt.Sprintf("PipelineRun (%v) is in progress.", pr.Name), "namespace", pr.Namespace)
	rc.Output(OutputPipelineRun, pr.Name)
	rc.Output(OutputNamespace, pr.Namespace)

	status, err := b.watcher.WaitForPipelineRunFinish(ctx, pr.Namespace, pr.Name)
	if err != nil {
		return fail(err)
	}
	log.Info("Pipeline has been completed")

	ref, sha, err := b.watcher.BuildResults(ctx, pr, status)
	if err != nil {
		return fail(err)
	}
	log.Info(fmt.Sprintf("Tagged built image with SHA: %v", sha))
	rc.Output(OutputImageReference, ref)
	rc.Output(OutputImageSha, sha)
	rc.Output(OutputImageDigest, sha)

	saved, err := b.images.Save(ctx, imagecontext.ImageContext{ImageReference: ref, ImageSha: sha})
	if err != nil {
		return fail(err)
	}
	log.Info("Pipeline result successfully saved.", "imageReference", saved.ImageReference, "imageSha", saved.ImageSha)

	err = b.notifier.PipelineRunCompleted(ctx, notify.Completion{
		Action:         DevSecOpsID,
		Invocation:     rc.Invocation,
		PipelineRun:    pr.Name,
		Namespace:      pr.Namespace,
		ImageReference: ref,
		ImageSha:       sha,
	})
	if err != nil {
		log.Error(err, "cannot send completion event")
	}
	return nil
}
