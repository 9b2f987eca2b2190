package model

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。y は n×1 の列ベクトル
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を n×1 の行列で返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator は fit/predict の能力を持つ教師あり学習モデル
type Estimator interface {
	Fitter
	Predictor
}

// Cloner は同じハイパーパラメータを持つ未学習のコピーを作成できるモデル
type Cloner interface {
	// Clone は学習済みパラメータを含まない新しいインスタンスを返す
	Clone() Estimator
}

// Regressor はスタッキングに参加できる回帰モデル
type Regressor interface {
	Estimator
	Cloner
}

// Named は表示名と列名に使う型名を公開するモデル
type Named interface {
	Name() string
}

// FeatureCounter は学習時に見た特徴量数を公開するモデル
type FeatureCounter interface {
	NFeaturesIn() int
}

// Family は登録時に一度だけ設定される推定器の能力タグ
type Family int

const (
	FamilyOther Family = iota
	FamilyLinear
	FamilyTree
	FamilyNeighbors
	FamilyBoosting
	FamilyBagging
	FamilyVoting
)

var familyNames = map[Family]string{
	FamilyOther:     "other",
	FamilyLinear:    "linear",
	FamilyTree:      "tree",
	FamilyNeighbors: "neighbors",
	FamilyBoosting:  "boosting",
	FamilyBagging:   "bagging",
	FamilyVoting:    "voting",
}

func (f Family) String() string {
	if s, ok := familyNames[f]; ok {
		return s
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// ParseFamily は設定ファイル上の名前からFamilyを返す
func ParseFamily(s string) (Family, error) {
	for f, name := range familyNames {
		if strings.EqualFold(name, s) {
			return f, nil
		}
	}
	return FamilyOther, fmt.Errorf("unknown estimator family %q", s)
}

// FamilyTagger は既定の能力タグを公開するモデル
type FamilyTagger interface {
	Family() Family
}
