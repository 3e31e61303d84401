// Package kubeutil holds small helpers over the Kubernetes API types shared
// by the orchestrator and the startup probe.
package kubeutil

import (
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/labels"
)

// SelectorForDeployment derives the label selector string used to find a
// deployment's pods. When the deployment declares no matchLabels the
// historical fallback is app=<name>; that heuristic is not guaranteed to map
// to the workload's real pods but is kept for compatibility.
func SelectorForDeployment(dep *appsv1.Deployment, name string) string {
	if dep != nil && dep.Spec.Selector != nil && len(dep.Spec.Selector.MatchLabels) > 0 {
		return labels.SelectorFromSet(dep.Spec.Selector.MatchLabels).String()
	}
	return labels.SelectorFromSet(labels.Set{"app": name}).String()
}

// IsPodFullyReady reports whether a pod is Running with every container ready
// and a true Ready condition. Pods without reported container statuses are
// treated as not ready.
func IsPodFullyReady(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodRunning {
		return false
	}
	if len(pod.Status.ContainerStatuses) == 0 {
		return false
	}
	for _, cs := range pod.Status.ContainerStatuses {
		if !cs.Ready {
			return false
		}
	}
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady && cond.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}

// ConditionTransitionTime returns the last transition timestamp of the named
// pod condition, gated on the condition being true.
func ConditionTransitionTime(pod *corev1.Pod, condType corev1.PodConditionType) (time.Time, bool) {
	for _, cond := range pod.Status.Conditions {
		if cond.Type == condType && cond.Status == corev1.ConditionTrue {
			if cond.LastTransitionTime.IsZero() {
				return time.Time{}, false
			}
			return cond.LastTransitionTime.Time, true
		}
	}
	return time.Time{}, false
}
